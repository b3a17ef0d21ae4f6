package api

import (
	"errors"
	"net/http"
	"strings"

	tserrs "github.com/dylantarre/trend-spotter/internal/errors"
	"github.com/dylantarre/trend-spotter/internal/serverutil"
	"github.com/dylantarre/trend-spotter/internal/trends"
)

type PostNewsletterSignupReq struct {
	Email         string `json:"email" validate:"required,email,max=254"`
	Name          string `json:"name" validate:"max=100"`
	Source        string `json:"source" validate:"max=100"`
	TrendCategory string `json:"trendCategory" validate:"max=50"`
}

func (r PostNewsletterSignupReq) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return serverutil.ValidateStruct(r)
}

type PostNewsletterSignupResp struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s Server) postNewsletterSignup(w http.ResponseWriter, r *http.Request) error {
	body, err := serverutil.DecodeValid[PostNewsletterSignupReq](r.Body)
	if err != nil {
		return err
	}

	id, err := s.repo.AddNewsletterSignup(r.Context(), trends.NewsletterSignup{
		Email:         strings.TrimSpace(body.Email),
		Name:          optional(body.Name),
		Source:        optional(body.Source),
		TrendCategory: optional(body.TrendCategory),
	})
	if errors.Is(err, trends.ErrAlreadySubscribed) {
		return tserrs.E(http.StatusConflict, "email already subscribed", tserrs.Detail{
			Field: "email",
			Error: "is already subscribed",
		})
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, PostNewsletterSignupResp{
		ID:      id,
		Message: "Successfully subscribed to the newsletter",
	})
}
