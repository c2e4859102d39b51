package errors

import (
	"sort"
	"sync"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

var (
	registryMu sync.RWMutex

	// registry maps error codes to their templates.
	registry = map[string]ErrorTemplate{
		// ============================================
		// Configuration Errors (E120-E149)
		// ============================================

		"E120": {
			Category: CategoryConfig,
			Message:  "Invalid configuration file",
			Detail:   "consoleroutes.json could not be read or is not valid JSON.",
		},
		"E121": {
			Category: CategoryConfig,
			Message:  "Unknown route variant",
			Detail:   "routes.variant must name one of the built-in console declarations.",
		},
		"E122": {
			Category: CategoryConfig,
			Message:  "Invalid port",
			Detail:   "server.port must be between 0 and 65535.",
		},
		"E123": {
			Category: CategoryConfig,
			Message:  "Invalid manifest location",
			Detail:   "routes.manifest must be a file path or an s3://bucket/key URL.",
		},
		"E141": {
			Category: CategoryConfig,
			Message:  "Configuration not found",
			Detail:   "No consoleroutes.json was found.",
		},

		// ============================================
		// Manifest Errors (E200-E219)
		// ============================================

		"E200": {
			Category: CategoryManifest,
			Message:  "Manifest could not be read",
			Detail:   "The route manifest source returned an error.",
		},
		"E201": {
			Category: CategoryManifest,
			Message:  "Manifest could not be parsed",
			Detail:   "The route manifest is not valid YAML or JSON.",
		},
		"E202": {
			Category: CategoryManifest,
			Message:  "Unknown component",
			Detail:   "A route references a component id that is not in the registry.",
		},
		"E203": {
			Category: CategoryManifest,
			Message:  "Invalid route declaration",
			Detail:   "The declared routes failed validation.",
		},
		"E204": {
			Category: CategoryManifest,
			Message:  "Unsupported manifest format",
			Detail:   "Manifests must be .yaml, .yml or .json.",
		},
		"E205": {
			Category: CategoryManifest,
			Message:  "Manifest watch failed",
			Detail:   "The manifest file could not be watched for changes.",
		},

		// ============================================
		// Navigation Errors (E300-E319)
		// ============================================

		"E300": {
			Category: CategoryNavigation,
			Message:  "No route matches path",
			Detail:   "The requested path does not resolve to any declared route.",
		},
		"E301": {
			Category: CategoryNavigation,
			Message:  "Invalid navigation path",
			Detail:   "Navigation targets must be same-origin paths starting with /.",
		},
		"E302": {
			Category: CategoryNavigation,
			Message:  "Redirect loop",
			Detail:   "Following redirects did not reach a renderable route.",
		},
		"E303": {
			Category: CategoryNavigation,
			Message:  "Navigation failed",
			Detail:   "The navigation was aborted, cancelled or a view failed to load.",
		},
	}
)

// GetTemplate returns the template for a code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := registry[code]
	return t, ok
}

// GetAllCodes returns every registered code in sorted order.
func GetAllCodes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Register adds or replaces an error template.
func Register(code string, template ErrorTemplate) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = template
}
