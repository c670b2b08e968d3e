package routing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/eforest-finance/forest-agent-kit/config"
)

// Route map keys, tried in order.
const (
	EnvActionMap       = "EFOREST_FOREST_API_ACTION_MAP_JSON"
	EnvActionMapLegacy = "FOREST_API_ACTION_MAP_JSON"
)

// Route is an HTTP endpoint for a backend action.
type Route struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Auth   bool   `json:"auth"`
}

// ResolveRoute looks up the route for skill and action in the action map
// held by snap. A compound "skill:action" key beats a nested
// {skill: {action: route}} entry.
func ResolveRoute(skill, action string, snap config.Snapshot) (Route, bool) {
	raw := snap.First(EnvActionMap, EnvActionMapLegacy)
	if raw == "" {
		return Route{}, false
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Route{}, false
	}
	return LookupRoute(parsed, skill, action)
}

// LookupRoute resolves skill and action in a decoded action map.
func LookupRoute(actionMap map[string]any, skill, action string) (Route, bool) {
	entry := actionMap[skill+":"+action]
	if !present(entry) {
		if nested, ok := actionMap[skill].(map[string]any); ok {
			entry = nested[action]
		}
	}
	if !present(entry) {
		return Route{}, false
	}
	return parseRoute(entry)
}

func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	default:
		return true
	}
}

func parseRoute(v any) (Route, bool) {
	switch r := v.(type) {
	case string:
		return Route{Method: "GET", Path: r, Auth: true}, true
	case map[string]any:
		method := "GET"
		if m, ok := r["method"]; ok && present(m) {
			method = strings.ToUpper(fmt.Sprint(m))
		}
		path, _ := r["path"].(string)
		if path == "" {
			path, _ = r["url"].(string)
		}
		if path == "" {
			return Route{}, false
		}
		auth, isBool := r["auth"].(bool)
		return Route{Method: method, Path: path, Auth: !isBool || auth}, true
	default:
		return Route{}, false
	}
}
