// Package attest revoca attestations on-chain a través del servicio de
// revocación. Cada revocación espera confirmación de transacción, así que el
// adapter pacea las llamadas con un rate limiter propio.
package attest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultAttestBase = "https://attest.foliotrack.app"
	revokePath        = "/v1/revoke"

	maxRetries    = 3
	baseRetryWait = 2 * time.Second
)

// Revoker revoca attestations una a una contra el servicio de attestation.
type Revoker struct {
	http      *http.Client
	base      string
	limiter   *rate.Limiter
	dryRun    bool
	retryWait time.Duration
}

// NewRevoker crea un Revoker. revocationsPerSecond controla el ritmo de
// envío; con dryRun las revocaciones se loguean pero no se envían.
func NewRevoker(base string, revocationsPerSecond float64, dryRun bool) *Revoker {
	if base == "" {
		base = defaultAttestBase
	}
	if revocationsPerSecond <= 0 {
		revocationsPerSecond = 0.5
	}
	return &Revoker{
		http:      &http.Client{Timeout: 30 * time.Second},
		base:      base,
		limiter:   rate.NewLimiter(rate.Limit(revocationsPerSecond), 1),
		dryRun:    dryRun,
		retryWait: baseRetryWait,
	}
}

type revokeRequest struct {
	UID string `json:"uid"`
}

type revokeResponse struct {
	TxHash string `json:"txHash"`
}

// RevokeAttestations revoca los UIDs dados en orden y devuelve cuántos se
// revocaron. Si una revocación falla tras los retries, devuelve el conteo
// parcial junto al error; las ya revocadas no se repiten.
func (r *Revoker) RevokeAttestations(ctx context.Context, uids []string) (int, error) {
	revoked := 0
	for _, uid := range uids {
		if err := r.limiter.Wait(ctx); err != nil {
			return revoked, fmt.Errorf("attest.RevokeAttestations: rate limiter: %w", err)
		}

		if r.dryRun {
			slog.Info("dry run: skipping revocation", "uid", uid)
			revoked++
			continue
		}

		if err := r.revokeOne(ctx, uid); err != nil {
			return revoked, fmt.Errorf("attest.RevokeAttestations: uid %s: %w", uid, err)
		}
		revoked++
	}
	return revoked, nil
}

// revokeOne envía la revocación de un UID con backoff exponencial.
func (r *Revoker) revokeOne(ctx context.Context, uid string) error {
	body, err := json.Marshal(revokeRequest{UID: uid})
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+revokePath, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := r.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			r.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("revocation retrying", "uid", uid, "status", resp.StatusCode, "attempt", attempt+1)
			r.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			msg, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(msg))
		}

		var out revokeResponse
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}

		slog.Debug("attestation revoked", "uid", uid, "tx_hash", out.TxHash)
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

func (r *Revoker) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * r.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
