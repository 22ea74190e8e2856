// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2019 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

// Package externalsystem talks to the core-boot system's own install
// service over its local HTTP API (§6): fetching the system description
// that seeds the Variation Catalog, and driving the
// SETUP_STORAGE_ENCRYPTION / FINISH handshake the Core-Boot Reconciler
// needs before it can write a single byte to disk.
package externalsystem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/canonical/guided-storage-planner/internal/logger"
)

// StorageEncryption describes the TPM/keystore backing available for a
// core-boot install.
type StorageEncryption struct {
	Support           string `json:"support"`
	StorageSafety     string `json:"storage-safety"`
	UnavailableReason string `json:"unavailable-reason,omitempty"`
}

// SystemVolume is one entry of a system description's "volumes" map.
type SystemVolume struct {
	Schema  string `json:"schema"`
	MinSize uint64 `json:"min-size"`
}

// SystemDetails is the response body of GET /v2/systems/{label}.
type SystemDetails struct {
	Label             string                  `json:"label"`
	Volumes           map[string]SystemVolume `json:"volumes"`
	StorageEncryption StorageEncryption       `json:"storage-encryption"`
}

// EncryptionRequest is the payload of the SETUP_STORAGE_ENCRYPTION
// POST: the action being performed, which install step it corresponds
// to, and the on-disk volumes structure the reconciler has already
// worked out offsets for.
type EncryptionRequest struct {
	Action    string                 `json:"action"`
	Step      string                 `json:"step"`
	OnVolumes map[string]interface{} `json:"on-volumes"`
}

// EncryptionResponse carries back the encrypted device paths, keyed by
// structure name, that the reconciler turns into ArbitraryDevices.
type EncryptionResponse struct {
	EncryptedDevices map[string]string `json:"encrypted-devices"`
}

// Client talks to the core-boot system's local install service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New builds a Client against baseURL (typically a unix-socket-backed
// http.Client's base URL, e.g. "http://localhost/").
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{BaseURL: baseURL, HTTP: hc}
}

// GetSystemDetails fetches GET /v2/systems/{label}.
func (c *Client) GetSystemDetails(ctx context.Context, label string) (*SystemDetails, error) {
	url := fmt.Sprintf("%s/v2/systems/%s", c.BaseURL, label)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	logger.Debugf("externalsystem: GET %s", url)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching system details for %q: %w", label, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: system %q returned status %d", ErrUnexpectedStatus, label, resp.StatusCode)
	}
	var details SystemDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("decoding system details for %q: %w", label, err)
	}
	return &details, nil
}

// SetupStorageEncryption drives the SETUP_STORAGE_ENCRYPTION action for
// label, returning the service's encrypted device map.
func (c *Client) SetupStorageEncryption(ctx context.Context, label string, req EncryptionRequest) (*EncryptionResponse, error) {
	url := fmt.Sprintf("%s/v2/systems/%s", c.BaseURL, label)
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	logger.Noticef("externalsystem: POST %s action=%s step=%s", url, req.Action, req.Step)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("setting up storage encryption for %q: %w", label, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: system %q returned status %d", ErrUnexpectedStatus, label, resp.StatusCode)
	}
	var out EncryptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding storage encryption response for %q: %w", label, err)
	}
	return &out, nil
}
