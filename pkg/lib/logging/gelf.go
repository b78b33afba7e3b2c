package logging

import (
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/zap"
	"gopkg.in/Graylog2/go-gelf.v2/gelf"
)

const gelfScheme = "gelf"

type gelfSink struct {
	sync.RWMutex
	gelfWriter gelf.Writer

	host    string
	version string
}

func (gs *gelfSink) Write(b []byte) (int, error) {
	gs.RLock()
	defer gs.RUnlock()
	if gs.gelfWriter == nil {
		return 0, fmt.Errorf("gelf writer is not initialized")
	}

	msg := gelf.Message{
		Version:  "1.1",
		Host:     gs.host,
		Short:    string(b),
		TimeUnix: float64(time.Now().UnixNano()) / float64(time.Second),
		Extra:    map[string]interface{}{"_mwver": gs.version},
	}

	// never block log calls on the network
	go func() {
		if err := gs.gelfWriter.WriteMessage(&msg); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write to gelf: %s\n", err)
		}
	}()

	return len(b), nil
}

func (gs *gelfSink) Close() error {
	gs.RLock()
	defer gs.RUnlock()
	if gs.gelfWriter == nil {
		return nil
	}
	return gs.gelfWriter.Close()
}

func (gs *gelfSink) Sync() error {
	return nil
}

func (gs *gelfSink) SetVersion(version string) {
	gs.Lock()
	defer gs.Unlock()
	gs.version = version
}

var gelfSinkWrapper = &gelfSink{}

// SetVersion attaches the middleware version to every shipped log record.
func SetVersion(version string) {
	gelfSinkWrapper.SetVersion(version)
}

func registerGelfSink(cfg *logging.Config, addr string) {
	writer, err := gelf.NewUDPWriter(addr)
	if err != nil {
		log.Errorf("failed to open gelf writer to %s: %v", addr, err)
		return
	}
	gelfSinkWrapper.gelfWriter = writer
	if host, err := os.Hostname(); err == nil {
		gelfSinkWrapper.host = host
	}

	err = zap.RegisterSink(gelfScheme, func(*url.URL) (zap.Sink, error) {
		return gelfSinkWrapper, nil
	})
	if err != nil {
		log.Errorf("failed to register gelf sink: %v", err)
		return
	}
	cfg.URL = gelfScheme + "://" + addr
}
