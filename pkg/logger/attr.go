package logger

import "log/slog"

// Error records a single error under the key "error". Nil errors produce an
// empty Attr that slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the originating component under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// UserID records the user identifier under the key "user_id".
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// Email records an email address under the key "email".
func Email(email string) slog.Attr {
	return slog.String("email", email)
}

// EventType records a webhook event type under the key "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// SubscriptionID records the provider subscription id under the key
// "subscription_id".
func SubscriptionID(id string) slog.Attr {
	return slog.String("subscription_id", id)
}
