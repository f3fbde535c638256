package logging

import "strings"

// FormatSubject builds the session/device subject string used in console output.
func FormatSubject(sessionID, deviceID string) string {
	sessionID = strings.TrimSpace(sessionID)
	deviceID = strings.TrimSpace(deviceID)
	if len(sessionID) > 8 {
		sessionID = sessionID[:8]
	}
	switch {
	case sessionID != "" && deviceID != "":
		return "Session " + sessionID + " (" + deviceID + ")"
	case sessionID != "":
		return "Session " + sessionID
	case deviceID != "":
		return deviceID
	}
	return ""
}
