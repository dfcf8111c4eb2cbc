// Package rpc talks to the hosted database's stored procedures.
package rpc

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const requiredDocumentsProcedure = "/rest/v1/rpc/get_required_documents_v2"

// RequirementsQuery mirrors the procedure's named parameters.
type RequirementsQuery struct {
	Category     string  `json:"santri_kategori_param"`
	SocialStatus string  `json:"status_sosial_param"`
	BirthDate    string  `json:"tanggal_lahir_param"`
	GuardianRel  *string `json:"wali_hubungan_param"`
	Address      *string `json:"alamat_param"`
}

// RemoteRequirement is one row returned by the procedure.
type RemoteRequirement struct {
	Code        string `json:"kode_dokumen"`
	Name        string `json:"nama_dokumen"`
	Kind        string `json:"kategori"`
	Required    bool   `json:"is_required"`
	Description string `json:"description"`
}

// Tag maps the remote kind onto required / conditional / optional.
func (r RemoteRequirement) Tag() string {
	switch strings.ToLower(strings.TrimSpace(r.Kind)) {
	case "wajib", "required":
		return "required"
	case "kondisional", "conditional":
		return "conditional"
	case "opsional", "optional":
		return "optional"
	}
	if r.Required {
		return "required"
	}
	return "optional"
}

// RequirementsClient calls get_required_documents_v2.
type RequirementsClient struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewRequirementsClient returns a client for baseURL authenticated with apiKey.
func NewRequirementsClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *RequirementsClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("apikey", apiKey).SetAuthToken(apiKey)
	}
	return &RequirementsClient{http: client, logger: logger}
}

// RequiredDocuments evaluates q remotely.
func (c *RequirementsClient) RequiredDocuments(ctx context.Context, q RequirementsQuery) ([]RemoteRequirement, error) {
	var rows []RemoteRequirement
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(q).
		SetResult(&rows).
		Post(requiredDocumentsProcedure)
	if err != nil {
		return nil, fmt.Errorf("call get_required_documents_v2: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		c.logger.Warn("requirement procedure returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", truncate(resp.String(), 256)),
		)
		return nil, fmt.Errorf("get_required_documents_v2: status %d", resp.StatusCode())
	}
	return rows, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
