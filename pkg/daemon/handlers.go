package daemon

import (
	"errors"
	"io"
	"net/http"

	"github.com/distatus/battery"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fastchg/fastchg/pkg/config"
	"github.com/fastchg/fastchg/pkg/kobj"
	"github.com/fastchg/fastchg/pkg/version"
)

// maxWriteSize caps a single attribute write, like a sysfs page.
const maxWriteSize = 4096

func abort(c *gin.Context, code int, err error) {
	c.IndentedJSON(code, err.Error())
	_ = c.AbortWithError(code, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, kobj.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, kobj.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, kobj.ErrReleased):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) listAttributes(c *gin.Context) {
	if s.module.Released() {
		abort(c, http.StatusServiceUnavailable, kobj.ErrReleased)
		return
	}
	c.IndentedJSON(http.StatusOK, s.module.Listing())
}

func (s *server) readAttribute(c *gin.Context) {
	name := c.Param("attr")

	v, err := s.module.Read(name)
	if err != nil {
		abort(c, statusFor(err), err)
		return
	}

	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(v))
}

func (s *server) writeAttribute(c *gin.Context) {
	name := c.Param("attr")

	b, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWriteSize+1))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if len(b) > maxWriteSize {
		abort(c, http.StatusRequestEntityTooLarge, errors.New("write exceeds 4096 bytes"))
		return
	}

	n, err := s.module.Write(name, string(b))
	if err != nil {
		abort(c, statusFor(err), err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"attribute": name,
		"bytes":     n,
	}).Debug("attribute written")

	c.IndentedJSON(http.StatusOK, n)
}

func (s *server) getPolicy(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.module.Policy().Snapshot())
}

func (s *server) getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(s.conf)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

// batteryGetAll is swapped out in tests.
var batteryGetAll = battery.GetAll

func (s *server) getBatteryInfo(c *gin.Context) {
	batteries, err := batteryGetAll()
	if err != nil && len(batteries) == 0 {
		logrus.Errorf("getBatteryInfo failed: %v", err)
		abort(c, http.StatusInternalServerError, err)
		return
	}

	if len(batteries) == 0 || batteries[0] == nil {
		logrus.Errorf("no batteries found")
		abort(c, http.StatusInternalServerError, errors.New("no batteries found"))
		return
	}

	bat := batteries[0]
	if bat.State == battery.Discharging {
		bat.ChargeRate = -bat.ChargeRate
	}

	c.IndentedJSON(http.StatusOK, bat)
}

func (s *server) getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func (s *server) streamEvents(c *gin.Context) {
	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	// Send headers right away so clients do not wait for the first event.
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-ctx.Done():
			return false
		}
	})
}
