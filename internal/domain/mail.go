package domain

const (
	MailTypeCreateUser    = "create_user"
	MailTypeShortageAlert = "shortage_alert"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ShortageAlertDay struct {
	Date          string  `json:"date"`
	WorkersNeeded float64 `json:"workersNeeded"`
	Shortage      int     `json:"shortage"`
}

type ShortageAlertMailData struct {
	FullName         string             `json:"fullName"`
	PlanID           int64              `json:"planID"`
	PlanName         string             `json:"planName"`
	WorkersAvailable int                `json:"workersAvailable"`
	OvertimeRiskDays int                `json:"overtimeRiskDays"`
	TotalShortage    int                `json:"totalShortage"`
	Days             []ShortageAlertDay `json:"days"`
}
