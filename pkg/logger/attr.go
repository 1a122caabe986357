package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// SessionID records the session identifier under the key "session_id".
// If id is nil, it returns an empty Attr.
func SessionID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("session_id", id)
}

// DeviceID records the device identifier under the key "device_id".
// If id is nil, it returns an empty Attr.
func DeviceID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("device_id", id)
}

// Flow records the authentication flow name under the key "flow".
func Flow(name string) slog.Attr {
	return slog.String("flow", name)
}

// Provider records the OAuth provider identifier under the key "provider".
func Provider(id string) slog.Attr {
	return slog.String("provider", id)
}

// RiskLevel records the assessed risk level under the key "risk_level".
func RiskLevel(level string) slog.Attr {
	return slog.String("risk_level", level)
}

// RiskScore records the assessed risk score under the key "risk_score".
func RiskScore(score float64) slog.Attr {
	return slog.Float64("risk_score", score)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Security marks a record as a security-class event under the key
// "security_event". Alerting keys on this attribute.
func Security() slog.Attr {
	return slog.Bool("security_event", true)
}

// IP records the client address under the key "ip".
func IP(addr string) slog.Attr {
	return slog.String("ip", addr)
}
