// Package console declares the scheduling console's route table.
package console

import (
	"fmt"

	"github.com/vango-dev/consoleroutes/pkg/router"
	"github.com/vango-dev/consoleroutes/pkg/views"
)

// Variant selects one of the two shipped declarations.
type Variant string

const (
	// VariantSchedule serves the resource-allocation page at
	// /ScheduleAlgorithm and keeps /Test as a redirect to it.
	VariantSchedule Variant = "schedule"

	// VariantTest serves the scheduling page directly at /Test.
	VariantTest Variant = "test"
)

// Variants lists the known variants.
var Variants = []Variant{VariantSchedule, VariantTest}

// ParseVariant validates a variant name. The empty string selects
// VariantSchedule.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantSchedule:
		return VariantSchedule, nil
	case VariantTest:
		return VariantTest, nil
	}
	return "", fmt.Errorf("unknown route variant %q", s)
}

func page(name, title, component string, reg *views.Registry) router.Route {
	return router.Route{
		Path:      "/" + capitalize(name),
		Name:      name,
		Meta:      router.Meta{router.MetaTitle: title},
		Component: reg.Load(component),
	}
}

// Routes returns the declaration for a variant, with views loaded from reg.
func Routes(v Variant, reg *views.Registry) []router.Route {
	homeTitle := "系统首页"
	if v == VariantTest {
		homeTitle = "首页"
	}

	children := []router.Route{
		page("home", homeTitle, views.Home, reg),
		page("processManage", "数据采集及处理", views.ProcessManage, reg),
		page("userManage", "人员管理", views.UserManage, reg),
	}
	if v == VariantTest {
		children = append(children, page("test", "调度算法", views.ScheduleRun, reg))
	} else {
		children = append(children,
			page("scheduleAlgorithm", "流程分析资源调配", views.ScheduleRun, reg),
			// Old bookmarks still point at /Test.
			router.Route{Path: "/Test", Redirect: "/ScheduleAlgorithm"},
		)
	}
	children = append(children, page("scheduleGantt", "检验动态驾驶舱", views.ScheduleGantt, reg))

	return []router.Route{
		{Path: "/", Name: "login", Component: reg.Load(views.Login)},
		{Path: "/Index", Name: "index", Component: reg.Load(views.Index), Children: children},
	}
}

// NewTable builds the live table for a variant.
func NewTable(v Variant, reg *views.Registry, opts ...router.Option) (*router.Table, error) {
	return router.New(Routes(v, reg), opts...)
}

// ResetRouter empties the table; the authentication module calls it on
// logout so no console route resolves until routes are registered again.
func ResetRouter(t *router.Table) {
	t.Reset()
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
