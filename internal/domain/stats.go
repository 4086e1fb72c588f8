package domain

// ListingStats summarizes the listings table for the stats tick.
type ListingStats struct {
	TotalListings   int     `json:"total_listings"`
	ActiveListings  int     `json:"active_listings"`
	Bounties        int     `json:"bounties"`
	Projects        int     `json:"projects"`
	AverageUSDValue float64 `json:"average_usd_value"`
}

// MatchingStats summarizes match and notification activity.
type MatchingStats struct {
	TotalMatches           int `json:"total_matches"`
	ActiveMatches          int `json:"active_matches"`
	NotificationsSentToday int `json:"notifications_sent_today"`
	UsersWithMatches       int `json:"users_with_matches"`
}

// ReminderStats summarizes reminder subscriptions.
type ReminderStats struct {
	TotalReminders       int `json:"total_reminders"`
	ActiveReminders      int `json:"active_reminders"`
	RemindersReadyToSend int `json:"reminders_ready_to_send"`
	UsersWithReminders   int `json:"users_with_reminders"`
}
