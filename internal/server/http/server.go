// Package httpserver exposes the match broker API consumed by the bot gateway.
package httpserver

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/bakaio/matchbroker/internal/errs"
	"github.com/bakaio/matchbroker/internal/model"
	"github.com/bakaio/matchbroker/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	matches   service.MatchService
	admission service.AdmissionService
	checkout  service.CheckoutService
	lifecycle service.LifecycleService
	audit     service.AuditService
	log       *zap.Logger
}

// New constructs the HTTP server with injected services.
func New(matches service.MatchService, admission service.AdmissionService, checkout service.CheckoutService, lifecycle service.LifecycleService, audit service.AuditService, log *zap.Logger) *Server {
	return &Server{
		matches:   matches,
		admission: admission,
		checkout:  checkout,
		lifecycle: lifecycle,
		audit:     audit,
		log:       log,
	}
}

// Register mounts all routes under /v1 behind the gateway auth middleware.
func (s *Server) Register(app *fiber.App, signKey []byte) {
	v1 := app.Group("/v1", GatewayAuth(signKey))

	v1.Post("/matches", s.publishMatch)
	v1.Get("/matches/:id", s.getMatch)
	v1.Put("/matches/:id/publications", s.setPublications)

	v1.Post("/matches/:id/claim", s.claim)
	v1.Post("/matches/:id/leave", s.leave)
	v1.Post("/matches/:id/checkout", s.ensureCheckout)

	v1.Post("/matches/:id/propose", s.proposeValue)
	v1.Post("/matches/:id/confirm", s.confirmPayment)
	v1.Post("/matches/:id/markpaid", s.markPaid)
	v1.Post("/matches/:id/resolve", s.resolve)

	v1.Get("/logs", s.recentLogs)
}

// --- Matches ---

type publishRequest struct {
	GuildID        string `json:"guild_id"`
	BrokerID       string `json:"broker_id"`
	Mode           string `json:"mode"`
	SuggestedValue string `json:"suggested_value"`
	ImageURL       string `json:"image_url"`
	ButtonLabel    string `json:"button_label"`
}

type matchResponse struct {
	ID               string                 `json:"id"`
	GuildID          string                 `json:"guild_id"`
	BrokerID         string                 `json:"broker_id"`
	Config           model.MatchConfig      `json:"config"`
	State            string                 `json:"state"`
	Publications     []model.PublicationRef `json:"publications"`
	CheckoutSpaceRef string                 `json:"checkout_space_ref,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

func toMatchResponse(m *model.Match) matchResponse {
	return matchResponse{
		ID:               m.ID.String(),
		GuildID:          m.GuildID,
		BrokerID:         m.BrokerID,
		Config:           m.Config,
		State:            string(m.State),
		Publications:     m.Publications,
		CheckoutSpaceRef: m.CheckoutSpaceRef,
		CreatedAt:        m.CreatedAt,
	}
}

func (s *Server) publishMatch(c *fiber.Ctx) error {
	var req publishRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "detail": "bad json"})
	}
	m, err := s.matches.Publish(c.Context(), service.PublishInput{
		GuildID:  req.GuildID,
		BrokerID: req.BrokerID,
		Config: model.MatchConfig{
			Mode:           req.Mode,
			SuggestedValue: req.SuggestedValue,
			ImageURL:       req.ImageURL,
			ButtonLabel:    req.ButtonLabel,
		},
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMatchResponse(m))
}

type participantResponse struct {
	UserID    string    `json:"user_id"`
	Confirmed bool      `json:"confirmed"`
	JoinedAt  time.Time `json:"joined_at"`
}

func (s *Server) getMatch(c *fiber.Ctx) error {
	id, err := matchID(c)
	if err != nil {
		return s.fail(c, err)
	}
	m, parts, err := s.matches.Get(c.Context(), id)
	if err != nil {
		return s.fail(c, err)
	}
	resp := struct {
		matchResponse
		Participants []participantResponse `json:"participants"`
	}{matchResponse: toMatchResponse(m), Participants: []participantResponse{}}
	for _, p := range parts {
		resp.Participants = append(resp.Participants, participantResponse{
			UserID: p.UserID, Confirmed: p.Confirmed, JoinedAt: p.JoinedAt,
		})
	}
	return c.JSON(resp)
}

func (s *Server) setPublications(c *fiber.Ctx) error {
	id, err := matchID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req struct {
		Publications []model.PublicationRef `json:"publications"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "detail": "bad json"})
	}
	if err := s.matches.SetPublications(c.Context(), id, req.Publications); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "stored"})
}

// --- Admission ---

type actorRequest struct {
	UserID  string `json:"user_id"`
	ActorID string `json:"actor_id"`
}

// actor accepts either field name; claim/leave are user actions, lifecycle
// calls come in as actor_id.
func (a actorRequest) actor() string {
	if a.ActorID != "" {
		return a.ActorID
	}
	return a.UserID
}

func (s *Server) claim(c *fiber.Ctx) error {
	id, err := matchID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req actorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "detail": "bad json"})
	}
	res, err := s.admission.Claim(c.Context(), id, req.actor())
	if err != nil {
		return s.fail(c, err)
	}
	status := "accepted"
	if res.Already {
		status = "already_claimed"
	}
	return c.JSON(fiber.Map{
		"status":          status,
		"count":           res.Count,
		"roster_complete": res.RosterComplete,
	})
}

func (s *Server) leave(c *fiber.Ctx) error {
	id, err := matchID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req actorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "detail": "bad json"})
	}
	if err := s.admission.Leave(c.Context(), id, req.actor()); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "removed"})
}

// ensureCheckout is the manual re-trigger for provisioning, used by the
// gateway when an operator re-checks a stuck match.
func (s *Server) ensureCheckout(c *fiber.Ctx) error {
	id, err := matchID(c)
	if err != nil {
		return s.fail(c, err)
	}
	res, err := s.checkout.Ensure(c.Context(), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"space_ref": res.SpaceRef, "created": res.Created})
}

// --- Lifecycle ---

func (s *Server) proposeValue(c *fiber.Ctx) error {
	id, err := matchID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req struct {
		ActorID string `json:"actor_id"`
		Value   string `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "detail": "bad json"})
	}
	if err := s.lifecycle.ProposeValue(c.Context(), id, req.ActorID, req.Value); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "proposed"})
}

func (s *Server) confirmPayment(c *fiber.Ctx) error {
	id, err := matchID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req actorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "detail": "bad json"})
	}
	if err := s.lifecycle.ConfirmPayment(c.Context(), id, req.actor()); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "confirmed"})
}

func (s *Server) markPaid(c *fiber.Ctx) error {
	id, err := matchID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req actorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "detail": "bad json"})
	}
	if err := s.lifecycle.MarkPaid(c.Context(), id, req.actor()); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "payment_confirmed"})
}

func (s *Server) resolve(c *fiber.Ctx) error {
	id, err := matchID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req struct {
		ActorID string `json:"actor_id"`
		Outcome string `json:"outcome"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "detail": "bad json"})
	}
	outcome := model.Outcome(req.Outcome)
	if !model.ValidOutcome(outcome) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "detail": "unknown outcome"})
	}
	if err := s.lifecycle.Resolve(c.Context(), id, req.ActorID, outcome); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "resolved", "outcome": req.Outcome})
}

// --- Audit ---

func (s *Server) recentLogs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	entries, err := s.audit.Recent(c.Context(), limit)
	if err != nil {
		return s.fail(c, err)
	}
	type entryResponse struct {
		ID        int64     `json:"id"`
		MatchID   string    `json:"match_id,omitempty"`
		Action    string    `json:"action"`
		ActorID   string    `json:"actor_id,omitempty"`
		Detail    string    `json:"detail,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		er := entryResponse{ID: e.ID, Action: e.Action, Detail: e.Detail, CreatedAt: e.CreatedAt}
		if e.MatchID != nil {
			er.MatchID = e.MatchID.String()
		}
		if e.ActorID != nil {
			er.ActorID = *e.ActorID
		}
		out = append(out, er)
	}
	return c.JSON(fiber.Map{"entries": out, "count": len(out)})
}

// --- Helpers ---

func matchID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.FromString(c.Params("id"))
	if err != nil {
		return uuid.Nil, errors.New("validation: bad match id")
	}
	return id, nil
}

// fail maps sentinel errors onto status codes and stable reason strings.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	var code int
	var reason string
	switch {
	case errors.Is(err, errs.ErrNotFound):
		code, reason = fiber.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrNotParticipant):
		code, reason = fiber.StatusNotFound, "not_participant"
	case errors.Is(err, errs.ErrForbidden):
		code, reason = fiber.StatusForbidden, "forbidden"
	case errors.Is(err, errs.ErrFull):
		code, reason = fiber.StatusConflict, "full"
	case errors.Is(err, errs.ErrNotOpen):
		code, reason = fiber.StatusConflict, "not_open"
	case errors.Is(err, errs.ErrAlreadyResolved):
		code, reason = fiber.StatusConflict, "already_resolved"
	case errors.Is(err, errs.ErrIllegalState):
		code, reason = fiber.StatusConflict, "illegal_state"
	case errors.Is(err, errs.ErrNotReady):
		code, reason = fiber.StatusConflict, "not_ready"
	case errors.Is(err, errs.ErrAlreadyExists):
		code, reason = fiber.StatusConflict, "already_exists"
	case errors.Is(err, errs.ErrExternalUnavailable):
		code, reason = fiber.StatusBadGateway, "external_unavailable"
	case strings.HasPrefix(err.Error(), "validation:"):
		code, reason = fiber.StatusBadRequest, "invalid_argument"
	default:
		s.log.Error("internal error", zap.String("path", c.Path()), zap.Error(err))
		code, reason = fiber.StatusInternalServerError, "internal"
	}
	return c.Status(code).JSON(fiber.Map{"error": reason, "detail": err.Error()})
}
