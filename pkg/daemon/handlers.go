package daemon

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/apportion/pkg/allocation"
	"github.com/charlie0129/apportion/pkg/calibrate"
	"github.com/charlie0129/apportion/pkg/config"
	"github.com/charlie0129/apportion/pkg/types"
	"github.com/charlie0129/apportion/pkg/version"
)

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func listAllocations(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, store.List())
}

func createAllocation(c *gin.Context) {
	var req types.CreateRequest
	if !bindBody(c, &req) {
		return
	}

	res, err := store.Create(req.Name, req.Labels, req.Percents)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.IndentedJSON(http.StatusCreated, res)
}

func getAllocation(c *gin.Context) {
	id, ok := allocationID(c)
	if !ok {
		return
	}

	a, err := store.Get(id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.IndentedJSON(http.StatusOK, a)
}

func deleteAllocation(c *gin.Context) {
	id, ok := allocationID(c)
	if !ok {
		return
	}

	if err := store.Delete(id); err != nil {
		abortWithError(c, err)
		return
	}

	c.IndentedJSON(http.StatusOK, "ok")
}

// respondResult writes the outcome of a mutating store operation.
func respondResult(c *gin.Context, res *allocation.Result, err error) {
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, res)
}

func shiftAllocation(c *gin.Context) {
	id, ok := allocationID(c)
	if !ok {
		return
	}
	var req types.ShiftRequest
	if !bindBody(c, &req) {
		return
	}

	res, err := store.Shift(id, req.Index, req.Magnitude)
	respondResult(c, res, err)
}

func incrementAllocation(c *gin.Context) {
	id, ok := allocationID(c)
	if !ok {
		return
	}
	var req types.IndexRequest
	if !bindBody(c, &req) {
		return
	}

	res, err := store.Increment(id, req.Index)
	respondResult(c, res, err)
}

func decrementAllocation(c *gin.Context) {
	id, ok := allocationID(c)
	if !ok {
		return
	}
	var req types.IndexRequest
	if !bindBody(c, &req) {
		return
	}

	res, err := store.Decrement(id, req.Index)
	respondResult(c, res, err)
}

func editAllocation(c *gin.Context) {
	id, ok := allocationID(c)
	if !ok {
		return
	}
	var req types.EditRequest
	if !bindBody(c, &req) {
		return
	}

	res, err := store.Edit(id, req.Index, req.Text)
	respondResult(c, res, err)
}

func removeItem(c *gin.Context) {
	id, ok := allocationID(c)
	if !ok {
		return
	}
	var req types.IndexRequest
	if !bindBody(c, &req) {
		return
	}

	res, err := store.Remove(id, req.Index)
	respondResult(c, res, err)
}

func resetAllocation(c *gin.Context) {
	id, ok := allocationID(c)
	if !ok {
		return
	}
	var req types.ForceRequest
	if !bindBody(c, &req) {
		return
	}

	res, err := store.Reset(id, req.Force)
	respondResult(c, res, err)
}

func recalibrateAllocation(c *gin.Context) {
	id, ok := allocationID(c)
	if !ok {
		return
	}
	var req types.ForceRequest
	if !bindBody(c, &req) {
		return
	}

	res, err := store.Recalibrate(id, req.Force)
	respondResult(c, res, err)
}

func getSchedule(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, recalibrator.Status())
}

func setSchedule(c *gin.Context) {
	var req types.ScheduleRequest
	if !bindBody(c, &req) {
		return
	}

	if err := recalibrator.Schedule(req.Expr); err != nil {
		abortWithError(c, pkgerrors.Wrapf(calibrate.ErrInvalidArgument, "invalid cron expression %q: %v", req.Expr, err))
		return
	}

	conf.SetRecalibrateSchedule(req.Expr)
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		abortWithStatus(c, http.StatusInternalServerError, err)
		return
	}

	if req.Expr == "" {
		logrus.Info("periodic recalibration disabled")
	} else {
		logrus.Infof("set recalibration schedule to %q", req.Expr)
	}

	c.IndentedJSON(http.StatusCreated, recalibrator.Status())
}

func skipSchedule(c *gin.Context) {
	if err := recalibrator.Skip(); err != nil {
		abortWithError(c, pkgerrors.Wrap(calibrate.ErrInvalidArgument, err.Error()))
		return
	}

	st := recalibrator.Status()
	logrus.Infof("skipped next recalibration, now due at %s", st.NextRun.Format(time.DateTime))

	c.IndentedJSON(http.StatusCreated, st)
}

// streamEvents relays hub events to the client as server-sent events until
// the client goes away or the hub is closed.
func streamEvents(c *gin.Context) {
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent(ev.Name, ev.Data)
			c.Writer.Flush()
		}
	}
}
