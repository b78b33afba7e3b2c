package testapp

import (
	"github.com/beamchat/beam-heart/app"
)

// New creates a test app that allows chained registration of components
func New() *TestApp {
	return &TestApp{&app.App{}}
}

type TestApp struct {
	*app.App
}

func (ta *TestApp) With(cmp app.Component) *TestApp {
	ta.Register(cmp)
	return ta
}
