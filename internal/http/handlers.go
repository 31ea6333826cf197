package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kharcha/internal/core"
	"kharcha/internal/export"
	"kharcha/internal/guard"
	"kharcha/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failures := map[string]string{}
	for name, check := range s.readyChecks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		s.logger.WarnContext(ctx, "Readiness check failed", "failures", failures)
		NewJSONResponse().Status(http.StatusServiceUnavailable).Data(map[string]any{"status": "unavailable", "failures": failures}).Write(w)
		return
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}

// sessionView is the client-facing guard state.
type sessionView struct {
	Phase    guard.Phase        `json:"phase"`
	Pending  []core.LedgerEntry `json:"pending,omitempty"`
	Required int                `json:"required,omitempty"`
	Current  int                `json:"current"`
}

func viewOf(st guard.State) sessionView {
	phase := st.Phase
	if phase == "" {
		phase = guard.Idle
	}
	return sessionView{Phase: phase, Pending: st.Pending, Required: st.Required, Current: st.Current}
}

// withGuardState loads the session's guard state under the session lock,
// runs fn and saves whatever state fn returns.
func (s *Server) withGuardState(ctx context.Context, fn func(guard.State) (guard.State, error)) error {
	id := sessionID(ctx)
	unlock := s.locker.Lock(id)
	defer unlock()

	state, err := s.sessions.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	next, fnErr := fn(state)
	if err := s.sessions.Save(ctx, id, next); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to save session", log.FieldError, err)
		if fnErr == nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	return fnErr
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := parseTextRequest(w, r, s.validate)
	if err != nil {
		FromError(err).Write(w)
		return
	}

	var result any
	err = s.withGuardState(ctx, func(st guard.State) (guard.State, error) {
		res, next, err := s.svc.Submit(ctx, st, req.Text)
		result = res
		return next, err
	})
	if err != nil {
		s.writeError(ctx, w, err, log.OpSubmit)
		return
	}
	NewJSONResponse().Data(result).Write(w)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var result any
	err := s.withGuardState(ctx, func(st guard.State) (guard.State, error) {
		res, next, err := s.svc.Confirm(ctx, st)
		result = res
		return next, err
	})
	if err != nil {
		s.writeError(ctx, w, err, log.OpConfirm)
		return
	}
	NewJSONResponse().Data(result).Write(w)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var view sessionView
	err := s.withGuardState(ctx, func(st guard.State) (guard.State, error) {
		next := s.svc.Cancel(ctx, st)
		view = viewOf(next)
		return next, nil
	})
	if err != nil {
		s.writeError(ctx, w, err, log.OpCancel)
		return
	}
	NewJSONResponse().Data(view).Write(w)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, err := s.sessions.Load(ctx, sessionID(ctx))
	if err != nil {
		s.writeError(ctx, w, err, log.OpQuery)
		return
	}
	NewJSONResponse().Data(viewOf(state)).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.svc.List(ctx)
	if err != nil {
		s.writeError(ctx, w, err, log.OpQuery)
		return
	}
	if entries == nil {
		entries = []core.LedgerEntry{}
	}
	NewJSONResponse().Data(map[string]any{"entries": entries, "count": len(entries)}).Write(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.svc.List(ctx)
	if err != nil {
		s.writeError(ctx, w, err, log.OpQuery)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="kharcha.csv"`)
	if err := export.WriteCSV(w, entries); err != nil {
		// Headers are already sent.
		log.FromContext(ctx).ErrorContext(ctx, "CSV export failed", log.FieldError, err)
	}
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := s.validate.Var(id, "required,max=64,printascii"); err != nil {
		FromError(fmt.Errorf("%w: invalid id", errBadRequest)).Write(w)
		return
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		s.writeError(ctx, w, err, log.OpDelete)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := s.svc.Today()
	if v := strings.TrimSpace(r.URL.Query().Get("today")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			FromError(fmt.Errorf("%w: today must be YYYY-MM-DD", errBadRequest)).Write(w)
			return
		}
		today = d
	}
	summary, err := s.svc.Dashboard(ctx, today)
	if err != nil {
		s.writeError(ctx, w, err, log.OpQuery)
		return
	}
	NewJSONResponse().Data(summary).Write(w)
}

func (s *Server) handleRoast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	text, err := s.svc.Review(ctx)
	if err != nil {
		s.writeError(ctx, w, err, log.OpReview)
		return
	}
	NewJSONResponse().Data(map[string]string{"review": text}).Write(w)
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error, op string) {
	resp := FromError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		log.FromContext(ctx).ErrorContext(ctx, "Request failed",
			log.FieldOperation, op,
			log.FieldError, err)
	}
	resp.Write(w)
}
