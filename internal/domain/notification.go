package domain

type NotificationMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type ScheduleReadyNotificationData struct {
	FullName         string  `json:"fullName"`
	RunID            string  `json:"runID"`
	ScheduledCount   int     `json:"scheduledCount"`
	UnassignedCount  int     `json:"unassignedCount"`
	BestFitness      float64 `json:"bestFitness"`
	GenerationsCount int32   `json:"generationsCount"`
}

type ScheduleFailedNotificationData struct {
	FullName string `json:"fullName"`
	RunID    string `json:"runID"`
	Reason   string `json:"reason"`
}
