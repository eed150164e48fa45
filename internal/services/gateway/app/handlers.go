package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/irrigation"
)

const (
	maxBodyBytes = 1 << 16
	sourceHTTP   = "http"
)

// HandleGetCommand is polled by the device: current pump command and whether
// it was set by hand.
func (g *Gateway) HandleGetCommand(w http.ResponseWriter, _ *http.Request) {
	st := g.state.Get()
	writeJSON(w, http.StatusOK, commandState{
		Command:   st.PumpState,
		Manual:    st.ManualOverride,
		Timestamp: g.cfg.Now().UTC().Format(time.RFC3339),
	})
}

// HandlePostCommand is the dashboard's manual control: ON/OFF take over the pump,
// AUTO hands it back to the engine.
func (g *Gateway) HandlePostCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err == nil {
		// Unmarshal rejects trailing data after the object
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			writeJSON(w, http.StatusBadRequest, plainError{Error: "Invalid action"})
			return
		}
		g.logger.Warn("malformed command body", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, plainError{Error: "Server Error"})
		return
	}
	if err := g.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, plainError{Error: "Invalid action"})
		return
	}

	// delivery failures are logged by the controller; the dashboard state is already updated
	if req.Action == "AUTO" {
		_ = g.controller.ClearOverride(r.Context())
		writeJSON(w, http.StatusOK, commandResult{Status: "success", Mode: "AUTO"})
		return
	}
	pump := entities.PumpState(req.Action)
	_ = g.controller.SetPump(r.Context(), pump, true)
	writeJSON(w, http.StatusOK, commandResult{Status: "success", Mode: "MANUAL", State: pump})
}

func (g *Gateway) HandleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, g.state.Get())
}

// HandleUpload receives a device reading, stores it and re-evaluates the plan.
func (g *Gateway) HandleUpload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, statusError{Status: "error", Message: "Invalid JSON"})
		return
	}
	var req uploadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		msg := "Invalid JSON"
		if errors.Is(err, errBadNumber) {
			msg = "Invalid telemetry"
		}
		writeJSON(w, http.StatusBadRequest, statusError{Status: "error", Message: msg})
		return
	}
	if req.SoilMoisture == nil {
		writeJSON(w, http.StatusBadRequest, statusError{Status: "error", Message: "Missing soil_moisture"})
		return
	}
	if err := g.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusError{Status: "error", Message: "Invalid telemetry"})
		return
	}

	plan, err := g.controller.Ingest(r.Context(), req.telemetry(), sourceHTTP)
	if err != nil {
		g.logger.Error("ingest failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, statusError{Status: "error", Message: "Ingest failed"})
		return
	}
	writeJSON(w, http.StatusOK, uploadResult{Status: "success", Received: body, Plan: plan})
}

// HandlePlan runs the what-if simulator. Live data is never touched.
func (g *Gateway) HandlePlan(w http.ResponseWriter, r *http.Request) {
	q, err := g.parsePlanQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, plainError{Error: err.Error()})
		return
	}
	plan := irrigation.Simulate(irrigation.Scenario{
		SoilCorrection: q.SoilCorrection,
		RainCorrection: q.RainCorrection,
		CropType:       q.CropType,
		GrowthStage:    entities.Stage(q.Stage),
		FieldSize:      q.FieldSize,
	}, g.cfg.Now())
	writeJSON(w, http.StatusOK, plan)
}

// HandleLivePlan evaluates the live state now, as the controller would on new telemetry.
func (g *Gateway) HandleLivePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := g.controller.RunOnce(r.Context())
	if plan == nil {
		if err != nil {
			g.logger.Error("live evaluation failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, plainError{Error: "Server Error"})
			return
		}
		writeJSON(w, http.StatusOK, liveResult{Skipped: true, Reason: "manual override active"})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (g *Gateway) HandleImpact(w http.ResponseWriter, r *http.Request) {
	fs := g.controller.Policy().FieldSizeHa
	if v := strings.TrimSpace(r.URL.Query().Get("field_size")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			writeJSON(w, http.StatusBadRequest, plainError{Error: "invalid field_size"})
			return
		}
		fs = f
	}

	g.rngMu.Lock()
	points := irrigation.WeeklyImpact(fs, g.cfg.Rand)
	g.rngMu.Unlock()

	writeJSON(w, http.StatusOK, points)
}

func (g *Gateway) HandleCrops(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, cropsResult{
		Crops:     entities.Crops(),
		Stages:    []entities.Stage{entities.StageVegetative, entities.StageReproductive, entities.StageRipening},
		DefaultKc: entities.DefaultKc,
	})
}

func (g *Gateway) parsePlanQuery(r *http.Request) (planQuery, error) {
	policy := g.controller.Policy()
	q := r.URL.Query()
	out := planQuery{
		CropType:  firstNonEmpty(q.Get("crop"), policy.CropType),
		Stage:     firstNonEmpty(q.Get("stage"), string(policy.Stage)),
		FieldSize: policy.FieldSizeHa,
	}

	var err error
	if out.SoilCorrection, err = intParam(q.Get("soil_correction")); err != nil {
		return out, errors.New("invalid soil_correction")
	}
	if out.RainCorrection, err = intParam(q.Get("rain_correction")); err != nil {
		return out, errors.New("invalid rain_correction")
	}
	if v := strings.TrimSpace(q.Get("field_size")); v != "" {
		if out.FieldSize, err = strconv.ParseFloat(v, 64); err != nil {
			return out, errors.New("invalid field_size")
		}
	}
	if err := g.validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return out, errors.New("invalid " + queryName(verrs[0].Field()))
		}
		return out, err
	}
	return out, nil
}

func intParam(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

var queryNames = map[string]string{
	"SoilCorrection": "soil_correction",
	"RainCorrection": "rain_correction",
	"CropType":       "crop",
	"Stage":          "stage",
	"FieldSize":      "field_size",
}

func queryName(field string) string {
	if n, ok := queryNames[field]; ok {
		return n
	}
	return field
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
