package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/auth"
	"github.com/digkill/ContentPlanner/internal/models"
	"github.com/digkill/ContentPlanner/internal/service"
)

type upgradeRequest struct {
	Plan models.Plan `json:"plan"`
}

type idRequest struct {
	ID int64 `json:"id"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleListPlans(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Plans.List())
}

func (s *Server) handleBankDetails(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Plans.BankDetails())
}

func (s *Server) handleRequestUpgrade(w http.ResponseWriter, r *http.Request) {
	var req upgradeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.svc.Payments.RequestUpgrade(r.Context(), auth.UserFrom(r.Context()), req.Plan)
	s.respond(w, r, created, err)
}

func (s *Server) handleListOwnRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.svc.Payments.ListForUser(r.Context(), auth.UserFrom(r.Context()))
	s.respond(w, r, reqs, err)
}

func (s *Server) handleSubmitProof(w http.ResponseWriter, r *http.Request) {
	var in service.SubmitProofInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.svc.Payments.SubmitProof(r.Context(), auth.UserFrom(r.Context()), in)
	s.respond(w, r, updated, err)
}

func (s *Server) handleUploadProof(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFrom(r.Context())
	if err := auth.RequireUser(caller); err != nil {
		s.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxProofSize+1<<20)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, apperr.New(apperr.Validation, "file exceeds 10 MiB"))
			return
		}
		s.writeError(w, r, apperr.Wrap(apperr.Validation, err, "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxProofSize+1))
	if err != nil {
		s.writeError(w, r, apperr.Wrap(apperr.Validation, err, "read uploaded file"))
		return
	}
	url, err := s.svc.Payments.UploadProof(r.Context(), caller, data)
	s.respond(w, r, uploadResponse{URL: url}, err)
}

func (s *Server) handleAdminDecide(w http.ResponseWriter, r *http.Request) {
	var in service.DecideInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	decided, err := s.svc.Payments.AdminDecide(r.Context(), auth.UserFrom(r.Context()), in)
	s.respond(w, r, decided, err)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.svc.Payments.ListPending(r.Context(), auth.UserFrom(r.Context()))
	s.respond(w, r, reqs, err)
}

func (s *Server) handleCurrentSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.svc.Subscriptions.Current(r.Context(), auth.UserFrom(r.Context()))
	s.respond(w, r, sub, err)
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateSubscriptionInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.svc.Subscriptions.Update(r.Context(), auth.UserFrom(r.Context()), in)
	s.respond(w, r, sub, err)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	var month time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("month")); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			s.writeError(w, r, apperr.New(apperr.Validation, "month must look like YYYY-MM"))
			return
		}
		month = parsed
	}
	posts, err := s.svc.Content.List(r.Context(), auth.UserFrom(r.Context()), month)
	s.respond(w, r, posts, err)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in service.CreatePostInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	post, err := s.svc.Content.Create(r.Context(), auth.UserFrom(r.Context()), in)
	s.respond(w, r, post, err)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var in service.UpdatePostInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	post, err := s.svc.Content.Update(r.Context(), auth.UserFrom(r.Context()), in)
	s.respond(w, r, post, err)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	var in idRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	err := s.svc.Content.Delete(r.Context(), auth.UserFrom(r.Context()), in.ID)
	s.respond(w, r, successResponse{Success: true}, err)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	tpls, err := s.svc.Templates.List(r.Context(), auth.UserFrom(r.Context()))
	s.respond(w, r, tpls, err)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTemplateInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	tpl, err := s.svc.Templates.Create(r.Context(), auth.UserFrom(r.Context()), in)
	s.respond(w, r, tpl, err)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	var in idRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	err := s.svc.Templates.Delete(r.Context(), auth.UserFrom(r.Context()), in.ID)
	s.respond(w, r, successResponse{Success: true}, err)
}
