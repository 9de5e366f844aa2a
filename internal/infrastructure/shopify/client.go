// Package shopify adaptador de la Admin API de Shopify (GraphQL y REST) con reintentos.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIVersion  = "2024-10"
	defaultMaxAttempts = 3
	defaultRetryBase   = 500 * time.Millisecond
	maxBodyBytes       = 1 << 20
)

// APIError respuesta no exitosa de Shopify tras agotar reintentos (o no reintentable).
// Status 0 indica error de transporte; 200 indica errores GraphQL en el cuerpo.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify: HTTP %d: %s", e.Status, e.Body)
}

// Config conexión a una tienda.
type Config struct {
	Domain      string // mi-tienda.myshopify.com
	AccessToken string
	APIVersion  string
	LocationID  string
	MaxAttempts int
	RetryBase   time.Duration
	// BaseURL reemplaza https://<Domain>/admin/api/<version> (pruebas).
	BaseURL    string
	HTTPClient *http.Client
	// Sleep espera entre reintentos; por defecto respeta ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client cliente de una tienda. Seguro para uso concurrente.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient construye el cliente aplicando valores por defecto.
func NewClient(cfg Config) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	base := cfg.BaseURL
	if base == "" {
		domain := strings.TrimSuffix(strings.TrimPrefix(cfg.Domain, "https://"), "/")
		base = fmt.Sprintf("https://%s/admin/api/%s", domain, cfg.APIVersion)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	return &Client{cfg: cfg, baseURL: strings.TrimSuffix(base, "/"), httpClient: hc, sleep: sleep}
}

// LocationID ubicación de inventario configurada para la tienda.
func (c *Client) LocationID() string { return c.cfg.LocationID }

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// backoff Retry-After (segundos) si viene, si no base * intento².
func (c *Client) backoff(attempt int, retryAfter string) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.ParseFloat(retryAfter, 64); err == nil && secs >= 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return c.cfg.RetryBase * time.Duration(attempt*attempt)
}

// do ejecuta la petición con reintentos y devuelve el cuerpo de una respuesta 2xx.
func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("shopify: crear request: %w", err)
		}
		req.Header.Set("X-Shopify-Access-Token", c.cfg.AccessToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("shopify: timeout o cancelación: %w", ctx.Err())
			}
			lastErr = &APIError{Status: 0, Body: err.Error()}
			if attempt < c.cfg.MaxAttempts {
				if err := c.sleep(ctx, c.backoff(attempt, "")); err != nil {
					return nil, err
				}
			}
			continue
		}
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("shopify: leer respuesta: %w", readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return raw, nil
		}
		apiErr := &APIError{Status: resp.StatusCode, Body: string(raw)}
		if !retryable(resp.StatusCode) {
			return nil, apiErr
		}
		lastErr = apiErr
		if attempt < c.cfg.MaxAttempts {
			if err := c.sleep(ctx, c.backoff(attempt, resp.Header.Get("Retry-After"))); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// GraphQL ejecuta query y decodifica data en out. Un arreglo errors no vacío es *APIError con status 200.
func (c *Client) GraphQL(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("shopify: serializar graphql: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/graphql.json", body)
	if err != nil {
		return err
	}
	var gr graphQLResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return fmt.Errorf("shopify: deserializar graphql: %w", err)
	}
	if len(gr.Errors) > 0 {
		msgs := make([]string, len(gr.Errors))
		for i, e := range gr.Errors {
			msgs[i] = e.Message
		}
		return &APIError{Status: http.StatusOK, Body: strings.Join(msgs, "; ")}
	}
	if out == nil || len(gr.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("shopify: deserializar data: %w", err)
	}
	return nil
}

// REST llama a <base>/<path> (p. ej. "orders/123/fulfillment_orders.json").
func (c *Client) REST(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("shopify: serializar body: %w", err)
		}
		body = b
	}
	raw, err := c.do(ctx, method, c.baseURL+"/"+strings.TrimPrefix(path, "/"), body)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("shopify: deserializar respuesta REST: %w", err)
	}
	return nil
}

// GID arma un identificador global: GID("Product", "123") = "gid://shopify/Product/123".
// Si id ya es un GID se devuelve sin cambios.
func GID(kind, id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/" + kind + "/" + id
}

// LegacyID devuelve la parte numérica de un GID (la que usa la API REST).
func LegacyID(gid string) string {
	if i := strings.LastIndex(gid, "/"); i >= 0 {
		return gid[i+1:]
	}
	return gid
}
