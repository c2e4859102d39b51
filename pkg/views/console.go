package views

// Component ids of the scheduling console's views.
const (
	Login         = "Login"
	Index         = "Index"
	Home          = "Home"
	ProcessManage = "ProcessManage"
	UserManage    = "UserManage"
	ScheduleRun   = "ScheduleRun"
	ScheduleGantt = "ScheduleGantt"
)

var consoleModules = []Module{
	{ID: Login, Source: "components/Login.vue"},
	{ID: Index, Source: "components/Index.vue"},
	{ID: Home, Source: "components/Home.vue"},
	{ID: ProcessManage, Source: "components/process/ProcessManage.vue"},
	{ID: UserManage, Source: "components/user/UserManage.vue"},
	{ID: ScheduleRun, Source: "components/user/ScheduleRun.vue"},
	{ID: ScheduleGantt, Source: "components/user/ScheduleGantt.vue"},
}

// Console returns a registry holding the console's seven views.
func Console(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	for _, m := range consoleModules {
		r.RegisterModule(m.ID, m.Source)
	}
	return r
}
