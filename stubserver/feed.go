package stubserver

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coursewire/coursewire-go/types"
)

// demoNotifications cycle through the feed to exercise every notification
// type a client can render, including one the client does not know.
var demoNotifications = []types.Notification{
	{
		Type:    types.NotificationTypeCourseEnrollment,
		Title:   "Enrollment confirmed",
		Message: "You are enrolled in Distributed Systems 101",
		Data:    types.JSONMap{"course_id": 42},
	},
	{
		Type:    types.NotificationTypeSessionStart,
		Title:   "Live session starting",
		Message: "Your instructor is live in 5 minutes",
		Data:    types.JSONMap{"session_id": 7},
	},
	{
		Type:    types.NotificationTypeExamResult,
		Title:   "Exam graded",
		Message: "Your midterm result is available",
	},
	{
		Type:    types.NotificationTypeAssignmentDue,
		Title:   "Assignment due soon",
		Message: "Problem set 3 is due tomorrow",
	},
	{
		Type:    "flash_sale",
		Title:   "Flash sale",
		Message: "All courses 20% off today",
	},
}

// StartDemoFeed inserts and pushes a demo notification every interval until
// stop is closed. It is used by the dev command to give clients something to
// watch.
func (s *Server) StartDemoFeed(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				n := demoNotifications[i%len(demoNotifications)]
				n.Message = fmt.Sprintf("%s (#%d)", n.Message, i+1)
				if _, err := s.Create(n); err != nil {
					log.Warn().Err(err).Msg("Demo feed insert failed")
				}
				i++
			}
		}
	}()
}
