package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jewelcraft/storefront/internal/app"
	"github.com/jewelcraft/storefront/internal/webserver"
)

func registerSchedulerRoutes() {
	webserver.ApiGET("/jobs", ListJobs)
	webserver.ApiPOST("/jobs/:name/run", TriggerJob, audit("job.run"))
}

// ListJobs lists the background jobs with their next and previous run
// @Summary list background jobs
// @Tags Jobs
// @Success 200 {object} Response
// @Router /api/v1/jobs [get]
func ListJobs(c echo.Context) error {
	return ok(c, GetAppContext(c).Jobs())
}

// TriggerJob runs a background job immediately
// @Summary run a background job now
// @Tags Jobs
// @Param name path string true "Job name"
// @Router /api/v1/jobs/{name}/run [post]
func TriggerJob(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	if err := GetAppContext(c).RunJobNow(name); err != nil {
		if errors.Is(err, app.ErrUnknownJob) {
			return fail(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", map[string]string{"name": name})
		}
		return fail(c, http.StatusInternalServerError, "RUN_FAILED", "Failed to run job", nil)
	}
	return c.NoContent(http.StatusAccepted)
}
