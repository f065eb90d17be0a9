package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"homecore/internal/device"
	"homecore/internal/infrastructure/mqtt"
)

// controlRequest is the body for POST /api/control and /api/voice-command.
type controlRequest struct {
	Device string `json:"device"`
	Action string `json:"action"`
}

// handleDevices returns the current state of every tracked device.
func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": s.devices.Snapshot(),
	})
}

// handleControl switches a device on or off from the dashboard.
// The command is published as "<device> <action>" on the shared control
// topic the firmware listens on, and the local state is reconciled
// immediately so the dashboard does not wait for the hardware echo.
// The backend also subscribes to that topic; the dispatcher absorbs
// the echo of its own command instead of treating it as external.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeControlRequest(w, r)
	if !ok {
		return
	}

	isOn := req.Action == "on"
	topics := mqtt.Topics{}

	if s.publisher != nil {
		command := fmt.Sprintf("%s %s", req.Device, req.Action)
		if err := s.publisher.PublishString(topics.Control(), command, s.publishQoS, false); err != nil {
			s.logger.Error("control publish failed", "device", req.Device, "error", err)
			writeInternalError(w, "failed to send command to device")
			return
		}

		// Status echo so other dashboards reflect the change even before
		// the hardware confirms it
		echo := fmt.Sprintf(`{"state":%q}`, req.Action)
		if err := s.publisher.PublishString(topics.DeviceStatus(req.Device), echo, s.publishQoS, false); err != nil {
			s.logger.Warn("status echo publish failed", "device", req.Device, "error", err)
		}
	}

	change := s.dispatcher.ApplyDeviceCommand(r.Context(), req.Device, isOn, device.SourceLocal)

	writeJSON(w, http.StatusOK, map[string]any{
		"device": change.Device,
		"is_on":  change.IsOn,
		"source": change.Source,
	})
}

// handleVoiceCommand relays a parsed voice command to a device.
// Same contract as /api/control; kept as a separate endpoint so the
// voice pipeline can be rate-limited or disabled independently.
func (s *Server) handleVoiceCommand(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeControlRequest(w, r)
	if !ok {
		return
	}

	topics := mqtt.Topics{}
	if s.publisher != nil {
		if err := s.publisher.PublishString(topics.DeviceControl(req.Device), req.Action, s.publishQoS, false); err != nil {
			s.logger.Error("voice command publish failed", "device", req.Device, "error", err)
			writeInternalError(w, "failed to send command to device")
			return
		}
	}

	change := s.dispatcher.ApplyDeviceCommand(r.Context(), req.Device, req.Action == "on", device.SourceLocal)

	writeJSON(w, http.StatusOK, map[string]any{
		"device": change.Device,
		"is_on":  change.IsOn,
		"source": change.Source,
	})
}

// decodeControlRequest parses and validates a control body. On failure
// it writes the error response and returns ok=false.
func (s *Server) decodeControlRequest(w http.ResponseWriter, r *http.Request) (controlRequest, bool) {
	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return controlRequest{}, false
	}

	req.Device = strings.ToLower(strings.TrimSpace(req.Device))
	req.Action = strings.ToLower(strings.TrimSpace(req.Action))

	if req.Device == "" {
		writeBadRequest(w, "device is required")
		return controlRequest{}, false
	}
	if req.Action != "on" && req.Action != "off" {
		writeBadRequest(w, "action must be \"on\" or \"off\"")
		return controlRequest{}, false
	}

	return req, true
}
