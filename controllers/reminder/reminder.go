package reminderController

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"subminder/middleware"
	"subminder/utils"
)

type Controller struct {
	job *utils.ReminderJob
}

func New(job *utils.ReminderJob) *Controller {
	return &Controller{job: job}
}

// RunNow runs the reminder pass immediately and returns its report.
func (h *Controller) RunNow(c *fiber.Ctx) error {
	report, err := h.job.Run(c.UserContext(), time.Now())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Reminder run finished.", report)
}
