package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

var (
	// values of this vars will be defined while compilation
	version string
	name    string
)

const closeTimeout = time.Minute

// Version returns the middleware version injected at build time.
func Version() string {
	if version == "" {
		return "dev"
	}
	return version
}

// AppName returns the application name injected at build time.
func AppName() string {
	if name == "" {
		return "beam-heart"
	}
	return name
}

// Component is a minimal interface for a common app.Component
type Component interface {
	// Init will be called first
	// When returned error is not nil - app start will be aborted
	Init(a *App) (err error)
	// Name must return unique service name
	Name() (name string)
}

// ComponentRunnable is an interface for realizing ability to start background processes or deep configure service
type ComponentRunnable interface {
	Component
	// Run will be called after init stage
	// Non-nil error also will be aborted app start
	Run(ctx context.Context) (err error)
	// Close will be called when app shutting down
	// Also will be called when service return error on Init or Run stage
	// Non-nil error will be printed to log
	Close(ctx context.Context) (err error)
}

// App is the central part of the application
// It contains and manages all components
type App struct {
	components []Component
	mu         sync.RWMutex
}

// Name returns app name
func (app *App) Name() string {
	return AppName()
}

// Version returns app version
func (app *App) Version() string {
	return Version()
}

// Register adds component to registry
// All components will be started in the order they were registered
func (app *App) Register(s Component) *App {
	app.mu.Lock()
	defer app.mu.Unlock()
	for _, es := range app.components {
		if s.Name() == es.Name() {
			panic(fmt.Errorf("component '%s' already registered", s.Name()))
		}
	}
	app.components = append(app.components, s)
	return app
}

// Component returns component by name
// If component with given name wasn't registered, nil will be returned
func (app *App) Component(name string) Component {
	app.mu.RLock()
	defer app.mu.RUnlock()
	for _, s := range app.components {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// MustComponent is like Component, but it will panic if component wasn't found
func (app *App) MustComponent(name string) Component {
	s := app.Component(name)
	if s == nil {
		panic(fmt.Errorf("component '%s' not registered", name))
	}
	return s
}

// ComponentNames returns all registered names
func (app *App) ComponentNames() (names []string) {
	app.mu.RLock()
	defer app.mu.RUnlock()
	names = make([]string, len(app.components))
	for i, c := range app.components {
		names[i] = c.Name()
	}
	return
}

// Start initializes and runs the application
// All registered components will be initialized in the order they were
// registered, then all runnable components started the same way
func (app *App) Start(ctx context.Context) (err error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	closeServices := func(idx int) {
		for i := idx; i >= 0; i-- {
			if serviceClose, ok := app.components[i].(ComponentRunnable); ok {
				if e := serviceClose.Close(ctx); e != nil {
					logrus.Warnf("component '%s' close error: %v", serviceClose.Name(), e)
				}
			}
		}
	}

	for i, s := range app.components {
		if err = s.Init(app); err != nil {
			closeServices(i)
			return fmt.Errorf("can't init service '%s': %w", s.Name(), err)
		}
	}

	for i, s := range app.components {
		if serviceRun, ok := s.(ComponentRunnable); ok {
			if err = serviceRun.Run(ctx); err != nil {
				closeServices(i)
				return fmt.Errorf("can't run service '%s': %w", serviceRun.Name(), err)
			}
		}
	}

	return nil
}

// Close stops the application
// All components with ComponentRunnable implementation will be closed in the reversed order
func (app *App) Close(ctx context.Context) error {
	logrus.Infof("close components...")
	app.mu.RLock()
	defer app.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		select {
		case <-done:
			return
		case <-time.After(closeTimeout):
			panic("app.Close timeout")
		}
	}()

	var errs *multierror.Error
	for i := len(app.components) - 1; i >= 0; i-- {
		if serviceClose, ok := app.components[i].(ComponentRunnable); ok {
			logrus.Debugf("close '%s'", serviceClose.Name())
			if e := serviceClose.Close(ctx); e != nil {
				errs = multierror.Append(errs, fmt.Errorf("component '%s' close error: %w", serviceClose.Name(), e))
			}
		}
	}
	close(done)
	return errs.ErrorOrNil()
}
