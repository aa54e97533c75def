// Package submit sends completed registrations to the festival backend as a
// multipart form posted to {baseURL}/submit.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
)

// Path is the endpoint path appended to the backend base URL.
const Path = "/submit"

// ErrRejected is returned when the backend answers with a non-2xx status.
var ErrRejected = errors.New("submission rejected")

// RejectedError carries the status of a rejected submission.
type RejectedError struct {
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("submission rejected: status %d", e.StatusCode)
}

// Unwrap lets errors.Is match ErrRejected.
func (e *RejectedError) Unwrap() error { return ErrRejected }

// Payload is everything sent for one registration.
type Payload struct {
	Name          string
	RollNumber    string
	Program       string
	Semester      string
	MobileNumber  string
	College       string
	Email         string
	Event         string
	TeamType      model.TeamType
	TeamName      string
	UPIID         string
	TransactionID string
	TeamMembers   []model.TeamMember
	CommunityLink string

	ReceiptName        string
	ReceiptContentType string
	Receipt            []byte
}

// Client posts payloads to the backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the backend at baseURL. A nil httpClient
// uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Submit posts p once. Any 2xx response is success; the body is discarded.
func (c *Client) Submit(ctx context.Context, p Payload) error {
	ctx, span := otel.Tracer("techfest/submit").Start(ctx, "submit.registration",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("registration.event", p.Event),
		attribute.String("registration.team_type", string(p.TeamType)),
	)

	body, contentType, err := Encode(p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode")
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+Path, body)
	if err != nil {
		return fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return fmt.Errorf("post submission: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &RejectedError{StatusCode: resp.StatusCode}
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Encode renders p as a multipart form body and returns it with its content
// type.
func Encode(p Payload) (*bytes.Buffer, string, error) {
	members := p.TeamMembers
	if members == nil {
		members = []model.TeamMember{}
	}
	membersJSON, err := json.Marshal(members)
	if err != nil {
		return nil, "", fmt.Errorf("encode team members: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ key, value string }{
		{"name", p.Name},
		{"rollNumber", p.RollNumber},
		{"program", p.Program},
		{"semester", p.Semester},
		{"mobileNumber", p.MobileNumber},
		{"college", p.College},
		{"email", p.Email},
		{"eventType", p.Event},
		{"teamType", string(p.TeamType)},
		{"teamName", p.TeamName},
		{"upiId", p.UPIID},
		{"transactionId", p.TransactionID},
		{"teamMembers", string(membersJSON)},
		{"whatsappLink", p.CommunityLink},
	}
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.key, err)
		}
	}

	if p.Receipt != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", multipart.FileContentDisposition("paymentReceipt", p.ReceiptName))
		contentType := p.ReceiptContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create receipt part: %w", err)
		}
		if _, err := part.Write(p.Receipt); err != nil {
			return nil, "", fmt.Errorf("write receipt: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
