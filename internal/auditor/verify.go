package auditor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	svcerrors "github.com/r3e-network/governance-core/internal/errors"
	"github.com/r3e-network/governance-core/internal/storage"
)

func hashLine(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyChain walks organization's log in append order and confirms each
// record's prev_hash matches the hash of the record written before it,
// detecting any line that was altered or removed after the fact.
func (a *Auditor) VerifyChain(ctx context.Context, organization string) (bool, error) {
	if !a.hashChain {
		return true, nil
	}
	lines, err := a.backend.ScanLog(ctx, storage.AuditLogName(organization))
	if err != nil {
		return false, svcerrors.StorageUnavailable("scan_audit_log", err)
	}

	expected := ""
	for i, line := range lines {
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return false, fmt.Errorf("audit line %d: unmarshal: %w", i, err)
		}
		if rec.PrevHash != expected {
			return false, nil
		}
		expected = hashLine(line)
	}
	return true, nil
}
