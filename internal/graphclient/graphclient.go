// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphclient implements C4, the Graph Memory Client: a stateless
// HTTP client against a remote lightrag-style retrieval service. Every
// operation is an independent request. The client sets no timeout of its
// own: each call is bounded only by the caller's context, and the
// QueryTimeout/DeleteTimeout/ListTimeout/HealthTimeout values below are
// not applied by this package. There is no client-side retry, matching the teacher's embeddings client
// (services/trace/explore/embedding_client.go), which this package's
// request/response/error shape is grounded on.
package graphclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianFOSS/internal/apperr"
)

var tracer = otel.Tracer("persag.graphclient")

// Query modes accepted by the remote service, per spec §4.4.
const (
	ModeLocal  = "local"
	ModeGlobal = "global"
	ModeHybrid = "hybrid"
	ModeMix    = "mix"
	ModeNaive  = "naive"
)

// Default per-operation timeouts (design defaults, per spec §5).
const (
	QueryTimeout  = 60 * time.Second
	DeleteTimeout = 60 * time.Second
	ListTimeout   = 30 * time.Second
	HealthTimeout = 10 * time.Second
)

// Client is a stateless HTTP client for one remote graph service instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client against baseURL (e.g. "http://localhost:9621").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// WithHTTPClient overrides the underlying *http.Client, for tests that
// need to inject a transport.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "failed to build graph service request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternal, "graph service request failed", err)
	}
	return resp, nil
}

func readErrorBody(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return string(body)
}

// IngestText uploads text as a new document with the given id.
func (c *Client) IngestText(ctx context.Context, text, documentID string) error {
	ctx, span := tracer.Start(ctx, "graphclient.IngestText")
	defer span.End()

	payload, err := json.Marshal(map[string]string{"text": text, "doc_id": documentID})
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "failed to marshal ingest_text payload", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/documents/text", bytes.NewReader(payload), "application/json")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ingest_text failed")
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return apperr.New(apperr.KindExternal, fmt.Sprintf("ingest_text returned status %d: %s", resp.StatusCode, readErrorBody(resp)))
	}
	return nil
}

// IngestFile multipart-uploads the file at path as a new document.
func (c *Client) IngestFile(ctx context.Context, path string) error {
	ctx, span := tracer.Start(ctx, "graphclient.IngestFile")
	span.SetAttributes(attribute.String("graph.file_path", path))
	defer span.End()

	f, err := os.Open(path)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "failed to open file for ingestion", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to build multipart upload", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to stream file contents", err)
	}
	if err := writer.Close(); err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to close multipart writer", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/documents/upload", &buf, writer.FormDataContentType())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ingest_file failed")
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return apperr.New(apperr.KindExternal, fmt.Sprintf("ingest_file returned status %d: %s", resp.StatusCode, readErrorBody(resp)))
	}
	return nil
}

// QueryRequest carries the parameters for Query.
type QueryRequest struct {
	Query        string         `json:"query"`
	Mode         string         `json:"mode"`
	TopK         int            `json:"top_k,omitempty"`
	ResponseType string         `json:"response_type,omitempty"`
	Extras       map[string]any `json:"-"`
}

type queryResponse struct {
	Response string `json:"response"`
}

// Query issues a retrieval query in the given mode and returns the
// server's textual response. Timeout should be >= QueryTimeout by the
// caller's context.
func (c *Client) Query(ctx context.Context, req QueryRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "graphclient.Query")
	defer span.End()
	span.SetAttributes(attribute.String("graph.mode", req.Mode))

	body := map[string]any{
		"query": req.Query,
		"mode":  req.Mode,
	}
	if req.TopK > 0 {
		body["top_k"] = req.TopK
	}
	if req.ResponseType != "" {
		body["response_type"] = req.ResponseType
	}
	for k, v := range req.Extras {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidInput, "failed to marshal query payload", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/query", bytes.NewReader(payload), "application/json")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", apperr.New(apperr.KindExternal, fmt.Sprintf("query returned status %d: %s", resp.StatusCode, readErrorBody(resp)))
	}
	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return "", apperr.Wrap(apperr.KindExternal, "failed to decode query response", err)
	}
	return qr.Response, nil
}

// Document is one entry from ListDocuments, flattened to a common shape
// regardless of which response envelope the server used.
type Document struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ListDocuments fetches every known document, tolerating the three
// response shapes spec §4.4 names: {statuses: {<status>: [doc,...]}},
// {documents: [doc,...]}, or a bare [doc,...] array.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	ctx, span := tracer.Start(ctx, "graphclient.ListDocuments")
	defer span.End()

	resp, err := c.do(ctx, http.MethodGet, "/documents", nil, "")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_documents failed")
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, apperr.New(apperr.KindExternal, fmt.Sprintf("list_documents returned status %d: %s", resp.StatusCode, readErrorBody(resp)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternal, "failed to read list_documents response", err)
	}
	return parseDocumentsResponse(raw)
}

func parseDocumentsResponse(raw []byte) ([]Document, error) {
	var asArray []Document
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return asArray, nil
	}

	var withStatuses struct {
		Statuses map[string][]Document `json:"statuses"`
	}
	if err := json.Unmarshal(raw, &withStatuses); err == nil && withStatuses.Statuses != nil {
		var out []Document
		for status, docs := range withStatuses.Statuses {
			for _, d := range docs {
				if d.Status == "" {
					d.Status = status
				}
				out = append(out, d)
			}
		}
		return out, nil
	}

	var withDocuments struct {
		Documents []Document `json:"documents"`
	}
	if err := json.Unmarshal(raw, &withDocuments); err == nil && withDocuments.Documents != nil {
		return withDocuments.Documents, nil
	}

	return nil, apperr.New(apperr.KindExternal, "list_documents response matched none of the recognized shapes")
}

// DeleteResult is the per-leg outcome of DeleteDocuments.
type DeleteResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// nonFatalDeleteStatuses are statuses spec §4.4 names as non-fatal errors
// rather than outright failures (the server is busy or refuses, but the
// request itself was well-formed).
var nonFatalDeleteStatuses = map[string]bool{
	"busy":        true,
	"not_allowed": true,
}

// DeleteDocuments deletes the given document ids. A response status of
// "deletion_started" is success; "busy" and "not_allowed" are reported as
// non-fatal errors (apperr.KindTransient), distinct from a genuine
// transport/server failure (apperr.KindExternal).
func (c *Client) DeleteDocuments(ctx context.Context, ids []string, deleteSource bool) (DeleteResult, error) {
	ctx, span := tracer.Start(ctx, "graphclient.DeleteDocuments")
	defer span.End()

	payload, err := json.Marshal(map[string]any{"doc_ids": ids, "delete_file": deleteSource})
	if err != nil {
		return DeleteResult{}, apperr.Wrap(apperr.KindInvalidInput, "failed to marshal delete payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/documents/delete_document", bytes.NewReader(payload))
	if err != nil {
		return DeleteResult{}, apperr.Wrap(apperr.KindInvalidInput, "failed to build delete request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete_documents failed")
		return DeleteResult{}, apperr.Wrap(apperr.KindExternal, "delete_documents request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return DeleteResult{}, apperr.New(apperr.KindExternal, fmt.Sprintf("delete_documents returned status %d: %s", resp.StatusCode, readErrorBody(resp)))
	}

	var result DeleteResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return DeleteResult{}, apperr.Wrap(apperr.KindExternal, "failed to decode delete_documents response", err)
	}
	if result.Status == "deletion_started" {
		return result, nil
	}
	if nonFatalDeleteStatuses[result.Status] {
		return result, apperr.New(apperr.KindTransient, fmt.Sprintf("delete_documents reported %s: %s", result.Status, result.Message))
	}
	return result, apperr.New(apperr.KindExternal, fmt.Sprintf("delete_documents reported unexpected status %q", result.Status))
}

// ClearCache clears the server's query cache across all modes.
func (c *Client) ClearCache(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "graphclient.ClearCache")
	defer span.End()

	payload, _ := json.Marshal(map[string]any{"modes": nil})
	resp, err := c.do(ctx, http.MethodPost, "/documents/clear_cache", bytes.NewReader(payload), "application/json")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "clear_cache failed")
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return apperr.New(apperr.KindExternal, fmt.Sprintf("clear_cache returned status %d: %s", resp.StatusCode, readErrorBody(resp)))
	}
	return nil
}

// TriggerScan asks the server to rescan its configured inputs directory.
func (c *Client) TriggerScan(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "graphclient.TriggerScan")
	defer span.End()

	resp, err := c.do(ctx, http.MethodPost, "/documents/scan", nil, "")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "trigger_scan failed")
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return apperr.New(apperr.KindExternal, fmt.Sprintf("trigger_scan returned status %d: %s", resp.StatusCode, readErrorBody(resp)))
	}
	return nil
}

// ListLabels returns every entity label known to the graph.
func (c *Client) ListLabels(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "graphclient.ListLabels")
	defer span.End()

	resp, err := c.do(ctx, http.MethodGet, "/graph/label/list", nil, "")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_labels failed")
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, apperr.New(apperr.KindExternal, fmt.Sprintf("list_labels returned status %d: %s", resp.StatusCode, readErrorBody(resp)))
	}
	var labels []string
	if err := json.NewDecoder(resp.Body).Decode(&labels); err != nil {
		return nil, apperr.Wrap(apperr.KindExternal, "failed to decode list_labels response", err)
	}
	return labels, nil
}

// Health reports whether the remote service answers 2xx on /health.
func (c *Client) Health(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "graphclient.Health")
	defer span.End()

	resp, err := c.do(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		span.RecordError(err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode/100 == 2
}
