package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		fragment string
		want     Route
	}{
		{"#/login", Route{View: ViewLogin}},
		{"#/register", Route{View: ViewRegister}},
		{"#/forgot", Route{View: ViewForgot}},
		{"#/update", Route{View: ViewUpdate}},
		{"#/board", Route{View: ViewBoard}},
		{"#/tasks/new", Route{View: ViewTaskNew}},
		{"#/task/edit/42", Route{View: ViewTaskEdit, Param: "42"}},
		{"#/task/edit/42/extra", Route{View: ViewTaskEdit, Param: "42"}},
		{"#/task/edit/", Route{View: ViewBoard}},
		{"#/task/edit", Route{View: ViewBoard}},
		{"#/reset/abc", Route{View: ViewReset, Param: "abc"}},
		{"#/reset/", Route{View: ViewForgot}},
		{"board", Route{View: ViewBoard}},
		{"", Route{View: ViewLogin}},
		{"#/", Route{View: ViewLogin}},
		{"#/nope", Route{View: ViewLogin}},
		{"#/task/editx/1", Route{View: ViewLogin}},
	}

	for _, tt := range tests {
		t.Run(tt.fragment, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.fragment))
		})
	}
}

func TestFragmentRoundTrip(t *testing.T) {
	routes := []Route{
		{View: ViewLogin},
		{View: ViewBoard},
		{View: ViewTaskNew},
		{View: ViewTaskEdit, Param: "abc"},
		{View: ViewReset, Param: "tok"},
		{View: ViewUpdate},
	}
	for _, r := range routes {
		assert.Equal(t, r, Parse(r.Fragment()), r.Fragment())
	}
	assert.Equal(t, "#/tasks/new", Route{View: ViewTaskNew}.Fragment())
}

func TestGuard(t *testing.T) {
	login := Route{View: ViewLogin}
	board := Route{View: ViewBoard}
	edit := Route{View: ViewTaskEdit, Param: "1"}

	assert.Equal(t, login, Guard(board, false))
	assert.Equal(t, login, Guard(Route{View: ViewTaskNew}, false))
	assert.Equal(t, login, Guard(edit, false))
	assert.Equal(t, login, Guard(Route{View: ViewUpdate}, false))
	assert.Equal(t, edit, Guard(edit, true))

	assert.Equal(t, board, Guard(login, true))
	assert.Equal(t, board, Guard(Route{View: ViewRegister}, true))
	assert.Equal(t, login, Guard(login, false))

	forgot := Route{View: ViewForgot}
	assert.Equal(t, forgot, Guard(forgot, true))
	assert.Equal(t, forgot, Guard(forgot, false))
}
