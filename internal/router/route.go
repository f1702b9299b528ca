package router

import "strings"

// View names one screen; it doubles as the name of its markup fragment.
type View string

const (
	ViewLogin    View = "login"
	ViewRegister View = "register"
	ViewForgot   View = "forgot"
	ViewReset    View = "reset"
	ViewUpdate   View = "update"
	ViewBoard    View = "board"
	ViewTaskNew  View = "task-new"
	ViewTaskEdit View = "task-edit"
)

// Views lists every screen, in no particular order.
var Views = []View{
	ViewLogin, ViewRegister, ViewForgot, ViewReset,
	ViewUpdate, ViewBoard, ViewTaskNew, ViewTaskEdit,
}

// Route is a resolved location. Param is the task id for task-edit and the
// reset token for reset.
type Route struct {
	View  View
	Param string
}

var staticRoutes = map[string]View{
	"login":     ViewLogin,
	"register":  ViewRegister,
	"forgot":    ViewForgot,
	"update":    ViewUpdate,
	"board":     ViewBoard,
	"tasks/new": ViewTaskNew,
}

// Parse resolves a location fragment such as "#/task/edit/42". The leading
// "#" and "/" are optional. Unknown fragments resolve to login; an edit
// fragment without an id resolves to board.
func Parse(fragment string) Route {
	path := strings.TrimPrefix(strings.TrimSpace(fragment), "#")
	path = strings.Trim(path, "/")

	if rest, ok := cutPrefix(path, "task/edit"); ok {
		if id := firstSegment(rest); id != "" {
			return Route{View: ViewTaskEdit, Param: id}
		}
		return Route{View: ViewBoard}
	}
	if rest, ok := cutPrefix(path, "reset"); ok {
		if token := firstSegment(rest); token != "" {
			return Route{View: ViewReset, Param: token}
		}
		return Route{View: ViewForgot}
	}

	if view, ok := staticRoutes[path]; ok {
		return Route{View: view}
	}
	return Route{View: ViewLogin}
}

// cutPrefix matches prefix as a whole path segment.
func cutPrefix(path, prefix string) (string, bool) {
	if path == prefix {
		return "", true
	}
	if strings.HasPrefix(path, prefix+"/") {
		return path[len(prefix)+1:], true
	}
	return "", false
}

func firstSegment(s string) string {
	return strings.SplitN(s, "/", 2)[0]
}

// Fragment is the canonical location of r.
func (r Route) Fragment() string {
	switch r.View {
	case ViewTaskEdit:
		return "#/task/edit/" + r.Param
	case ViewReset:
		return "#/reset/" + r.Param
	case ViewTaskNew:
		return "#/tasks/new"
	default:
		return "#/" + string(r.View)
	}
}

// Protected views need a session token.
func (v View) Protected() bool {
	switch v {
	case ViewBoard, ViewTaskNew, ViewTaskEdit, ViewUpdate:
		return true
	}
	return false
}

// GuestOnly views make no sense with a session and bounce to the board.
func (v View) GuestOnly() bool {
	return v == ViewLogin || v == ViewRegister
}

// Guard applies the authentication gate to r.
func Guard(r Route, authenticated bool) Route {
	switch {
	case r.View.Protected() && !authenticated:
		return Route{View: ViewLogin}
	case r.View.GuestOnly() && authenticated:
		return Route{View: ViewBoard}
	}
	return r
}
