package sap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/datec-bo/facturaflow/internal/invoice"
	"github.com/sirupsen/logrus"
)

// SubmissionStatus is the terminal state of one submission attempt.
type SubmissionStatus string

const (
	// Acknowledged means SAP accepted the document and assigned a number.
	Acknowledged SubmissionStatus = "acknowledged"
	// Failed means the submission ended in a terminal error.
	Failed SubmissionStatus = "failed"
)

// SubmissionResult carries the SAP document identity back to the caller.
type SubmissionResult struct {
	Status          SubmissionStatus `json:"status"`
	SupplierInvoice string           `json:"supplier_invoice,omitempty"`
	FiscalYear      string           `json:"fiscal_year,omitempty"`
}

// Session posts supplier invoices through the CSRF handshake: fetch a token
// with a GET, POST with the token and session cookies, and on a 403 refresh
// the token exactly once before giving up. Token and cookies live for a
// single Submit call and are never reused across invoices.
type Session struct {
	client *Client
}

// NewSession wraps a client with CSRF token management.
func NewSession(client *Client) *Session {
	return &Session{client: client}
}

// csrfState is the per-submission token and cookie set.
type csrfState struct {
	token   string
	cookies []*http.Cookie
}

type submissionResponse struct {
	D struct {
		SupplierInvoice string `json:"SupplierInvoice"`
		FiscalYear      string `json:"FiscalYear"`
	} `json:"d"`
}

// Submit posts the payload with a freshly fetched token. A 403 response gets
// one token refresh and one retried POST; a second 403 is terminal.
func (s *Session) Submit(ctx context.Context, payload *invoice.SapPayload) (SubmissionResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return SubmissionResult{Status: Failed}, fmt.Errorf("failed to encode payload: %w", err)
	}

	state, err := s.fetchToken(ctx)
	if err != nil {
		return SubmissionResult{Status: Failed}, err
	}

	result, retry, err := s.post(ctx, state, body)
	if err == nil || !retry {
		return result, err
	}

	s.client.Log.WithField("invoice", payload.SupplierInvoiceIDByInvcgParty).
		Warn("CSRF token rejected, refreshing once")

	state, err = s.fetchToken(ctx)
	if err != nil {
		return SubmissionResult{Status: Failed}, err
	}

	result, _, err = s.post(ctx, state, body)
	var authErr *invoice.AuthError
	if errors.As(err, &authErr) && authErr.Status == http.StatusForbidden {
		// A freshly fetched token was rejected too; the gateway itself is
		// misbehaving, not the session.
		err = &invoice.UpstreamError{Op: "submit invoice", Status: authErr.Status, Body: authErr.Reason}
	}
	return result, err
}

// post performs one POST attempt. The retry flag is true only for a CSRF
// rejection, the single condition worth a second attempt.
func (s *Session) post(ctx context.Context, state *csrfState, body []byte) (SubmissionResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.BaseURL+supplierInvoicePath, bytes.NewReader(body))
	if err != nil {
		return SubmissionResult{Status: Failed}, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(s.client.Username, s.client.Password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-csrf-token", state.token)
	for _, c := range state.cookies {
		req.AddCookie(c)
	}

	resp, err := s.client.HTTPClient.Do(req)
	if err != nil {
		return SubmissionResult{Status: Failed}, false, fmt.Errorf("submission failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return SubmissionResult{Status: Failed}, false, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		var sr submissionResponse
		if err := json.Unmarshal(respBody, &sr); err != nil {
			return SubmissionResult{Status: Failed}, false, fmt.Errorf("malformed submission response: %w", err)
		}
		s.client.Log.WithFields(logrus.Fields{
			"supplier_invoice": sr.D.SupplierInvoice,
			"fiscal_year":      sr.D.FiscalYear,
		}).Info("Supplier invoice posted")
		return SubmissionResult{
			Status:          Acknowledged,
			SupplierInvoice: sr.D.SupplierInvoice,
			FiscalYear:      sr.D.FiscalYear,
		}, false, nil
	case http.StatusForbidden:
		return SubmissionResult{Status: Failed}, true,
			&invoice.AuthError{Status: resp.StatusCode, Reason: "CSRF token rejected"}
	case http.StatusUnauthorized:
		return SubmissionResult{Status: Failed}, false,
			&invoice.AuthError{Status: resp.StatusCode, Reason: "credentials rejected"}
	default:
		return SubmissionResult{Status: Failed}, false,
			&invoice.UpstreamError{Op: "submit invoice", Status: resp.StatusCode, Body: truncate(string(respBody), 512)}
	}
}

// fetchToken performs the "x-csrf-token: Fetch" handshake.
func (s *Session) fetchToken(ctx context.Context) (*csrfState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.BaseURL+supplierInvoicePath+"?$top=1&$format=json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(s.client.Username, s.client.Password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-csrf-token", "Fetch")

	resp, err := s.client.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token fetch failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &invoice.AuthError{Status: resp.StatusCode, Reason: "credentials rejected during token fetch"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &invoice.UpstreamError{Op: "fetch CSRF token", Status: resp.StatusCode}
	}

	token := resp.Header.Get("x-csrf-token")
	if token == "" {
		return nil, &invoice.AuthError{Reason: "gateway returned no CSRF token"}
	}

	return &csrfState{token: token, cookies: resp.Cookies()}, nil
}
