package seed

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/config"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/repository"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/utils"
)

// Seed 生成演示用的用户、排程偏好和待安排会议
func Seed(cfg *config.Config, repo *repository.Repository) {
	// 插入用户
	users := make([]*domain.User, 0, cfg.Seed.UserCount)
	for i := 0; i < cfg.Seed.UserCount; i++ {
		user := utils.GenerateRandomUser("ecnc.edu.cn")

		if err := repo.CreateUser(user); err != nil {
			slog.Error("无法创建用户", "username", user.Username, "error", err)
			continue
		}
		users = append(users, user)
	}

	if len(users) == 0 {
		slog.Error("没有成功创建任何用户，终止填充")
		return
	}

	slog.Info("用户填充完成", "count", len(users))

	// 为每个用户插入排程偏好
	for _, user := range users {
		prefs := domain.DefaultSchedulePreferences(user.ID)
		prefs.TargetFocusHours = float64(rand.Intn(4) + 2)

		if err := repo.UpsertSchedulePreferences(prefs); err != nil {
			slog.Error("无法保存排程偏好", "userID", user.ID, "error", err)
		}
	}

	slog.Info("排程偏好填充完成")

	// 为每个用户插入待安排的会议
	meetingCount := 0
	for _, organizer := range users {
		for i := 0; i < cfg.Seed.MeetingCount; i++ {
			meeting := randomMeeting(organizer, users)

			if err := repo.CreateMeeting(meeting); err != nil {
				slog.Error("无法创建会议", "title", meeting.Title, "error", err)
				continue
			}
			meetingCount++
		}
	}

	slog.Info("会议填充完成", "count", meetingCount)
}

func randomMeeting(organizer *domain.User, users []*domain.User) *domain.Meeting {
	meeting := &domain.Meeting{
		OrganizerID:     organizer.ID,
		Title:           utils.GenerateRandomMeetingTitle(),
		DurationMinutes: utils.GenerateRandomMeetingDuration(),
		Priority:        float64(rand.Intn(10)+1) / 10,
		Flexibility:     float64(rand.Intn(10)+1) / 10,
		Constraints:     map[string]string{},
		Status:          domain.MeetingStatusPending,
	}

	// 组织者必须参加自己的会议
	meeting.RequiredAttendees = []int64{organizer.ID}
	for _, user := range users {
		if user.ID == organizer.ID {
			continue
		}
		if rand.Float64() < 0.3 {
			meeting.RequiredAttendees = append(meeting.RequiredAttendees, user.ID)
		} else if rand.Float64() < 0.2 {
			meeting.OptionalAttendees = append(meeting.OptionalAttendees, user.ID)
		}
	}

	// 一部分会议带有偏好时间窗口（希望安排在明天上午）
	if rand.Float64() < 0.4 {
		tomorrow := time.Now().AddDate(0, 0, 1)
		start := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 9, 0, 0, 0, time.Local)
		meeting.PreferredWindows = []domain.PreferredWindow{
			{StartTime: start, EndTime: start.Add(3 * time.Hour)},
		}
	}

	return meeting
}
