package presence

import "time"

// Visitor is one tracked browser session. SessionID is the stable identity;
// SocketID changes on every websocket reconnect.
type Visitor struct {
	SessionID    string    `bson:"sessionId" json:"sessionId"`
	SocketID     string    `bson:"socketId,omitempty" json:"socketId,omitempty"`
	IPAddress    string    `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	UserAgent    string    `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	Page         string    `bson:"page" json:"page"`
	IsActive     bool      `bson:"isActive" json:"isActive"`
	LastActivity time.Time `bson:"lastActivity" json:"lastActivity"`
	FirstVisit   time.Time `bson:"firstVisit" json:"firstVisit"`
}

// LiveCount is the payload broadcast to subscribers whenever the number of
// live visitors may have changed.
type LiveCount struct {
	Count     int64     `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats aggregates visitor counts over standard reporting cohorts. Cohorts
// bucket by first visit, so a long-lived session counts once in the period
// it arrived in.
type Stats struct {
	LiveViewers       int64     `json:"liveViewers"`
	VisitorsLastHour  int64     `json:"visitorsLastHour"`
	VisitorsToday     int64     `json:"visitorsToday"`
	VisitorsThisMonth int64     `json:"visitorsThisMonth"`
	TotalVisitors     int64     `json:"totalVisitors"`
	Timestamp         time.Time `json:"timestamp"`
}
