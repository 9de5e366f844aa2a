// Package portal adaptador saliente hacia el portal de clientes (webhook warehouse-sync).
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/ports"
)

// Verificar en tiempo de compilación que Notifier implementa PortalNotifier.
var _ ports.PortalNotifier = (*Notifier)(nil)

// SecretHeader cabecera con el secreto compartido.
const SecretHeader = "X-Webhook-Secret"

// Notifier publica eventos en POST <url>. Los reintentos son responsabilidad de la cola.
type Notifier struct {
	url        string
	secret     string
	httpClient *http.Client
}

// NewNotifier construye el adaptador. Devuelve nil si url está vacío (portal deshabilitado).
func NewNotifier(url, secret string) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Notify envía el evento; cualquier respuesta no 2xx es error.
func (n *Notifier) Notify(ctx context.Context, ev dto.WarehouseSyncEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("portal: serializar evento: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("portal: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SecretHeader, n.secret)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("portal: enviar %s: %w", ev.Event, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("portal: %s respondió HTTP %d: %s", ev.Event, resp.StatusCode, string(raw))
	}
	var out dto.WarehouseSyncResponse
	if err := json.Unmarshal(raw, &out); err == nil && !out.Success && out.Error != "" {
		return fmt.Errorf("portal: %s rechazado: %s", ev.Event, out.Error)
	}
	return nil
}
