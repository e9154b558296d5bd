package domain

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/kailas-cloud/ccdarank/internal/domain/document"
)

func TestParseError(t *testing.T) {
	h := document.Handle{ID: "doc.xml"}
	err := NewParseError(h, io.ErrUnexpectedEOF)

	if !errors.Is(err, ErrParse) {
		t.Error("expected errors.Is(err, ErrParse)")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected cause to be unwrapped")
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Handle.ID != "doc.xml" {
		t.Errorf("errors.As failed: %v", err)
	}
	if FailureReason(err) != "parse" {
		t.Errorf("FailureReason = %q", FailureReason(err))
	}
}

func TestResourceLimitError(t *testing.T) {
	h := document.Handle{ID: "big.xml"}
	err := NewResourceLimitError(h, "timeout 1s", context.DeadlineExceeded)
	if !errors.Is(err, ErrResourceLimit) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("unexpected chain: %v", err)
	}
	if FailureReason(err) != "resource_limit" {
		t.Errorf("FailureReason = %q", FailureReason(err))
	}
	bare := NewResourceLimitError(h, "size 10 > 5", nil)
	if bare.Error() != "resource limit exceeded: big.xml: size 10 > 5" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestConfigErrors(t *testing.T) {
	err := NewConfigError("min_frequency", "must be within [0,1]")
	if !errors.Is(err, ErrConfig) {
		t.Error("expected ErrConfig")
	}
	if err.Error() != "invalid configuration: min_frequency must be within [0,1]" {
		t.Errorf("Error() = %q", err.Error())
	}

	fatal := NewFatalConfigError("checkpoint dir not writable", io.ErrClosedPipe)
	if !errors.Is(fatal, ErrFatalConfig) || !errors.Is(fatal, io.ErrClosedPipe) {
		t.Errorf("unexpected chain: %v", fatal)
	}
	if IsDocumentError(fatal) {
		t.Error("fatal config error must not be document-local")
	}
}

func TestCheckpointCorruption(t *testing.T) {
	err := NewCheckpointCorruption("/tmp/x.ckpt.json", "checksum mismatch")
	var ce *CheckpointCorruptionError
	if !errors.As(err, &ce) || ce.Reason != "checksum mismatch" {
		t.Errorf("errors.As failed: %v", err)
	}
	if !errors.Is(err, ErrCheckpointCorrupt) {
		t.Error("expected ErrCheckpointCorrupt")
	}
}

func TestFailureReason(t *testing.T) {
	if FailureReason(nil) != "" {
		t.Error("nil error must have empty reason")
	}
	if FailureReason(errors.New("x")) != "unknown" {
		t.Error("foreign error must be unknown")
	}
}
