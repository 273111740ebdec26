package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validate reports every problem that keeps d from being activated.
func Validate(d *Descriptor) error {
	p, err := payloadOf(d)
	if err != nil {
		return err
	}

	var errs []error
	if strings.TrimSpace(d.DisplayName) == "" {
		errs = append(errs, errors.New("display name is empty"))
	}
	addr, port := p.Endpoint()
	if addr == "" {
		errs = append(errs, errors.New("address is empty"))
	}
	if port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", port))
	}

	switch v := p.(type) {
	case *VmessPayload:
		errs = append(errs, validateID(v.ID))
	case *VlessPayload:
		errs = append(errs, validateID(v.ID))
	case *ShadowsocksPayload:
		if v.Method == "" {
			errs = append(errs, errors.New("method is empty"))
		}
		if v.Password == "" {
			errs = append(errs, errors.New("password is empty"))
		}
	case *TrojanPayload:
		if v.Password == "" {
			errs = append(errs, errors.New("password is empty"))
		}
	}
	return errors.Join(errs...)
}

// validateID accepts a UUID or a custom id of 1 to 30 bytes, which Xray
// maps onto a UUID itself.
func validateID(id string) error {
	if id == "" {
		return errors.New("id is empty")
	}
	if _, err := uuid.Parse(id); err == nil {
		return nil
	}
	if len(id) > 30 {
		return fmt.Errorf("id %q is neither a UUID nor a short custom id", id)
	}
	return nil
}

// NewID returns a random id for a manually created vmess or vless server.
func NewID() string {
	return uuid.NewString()
}
