package codec

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

const signDomain = "fairtable/op/v1"

// SignBytes builds the message an envelope signature covers:
//
//	DOMAIN || 0x00 || kind || 0x00 || seq (u64 BE) || signer || 0x00 || sha256(value)
//
// The domain prefix keeps table-op signatures from ever validating in
// another context; hashing Value keeps the message fixed-size-ish without
// caring how the payload JSON was formatted by the producer.
func SignBytes(kind string, value []byte, seq uint64, signer string) []byte {
	sum := sha256.Sum256(value)
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	out := make([]byte, 0, len(signDomain)+1+len(kind)+1+8+len(signer)+1+sha256.Size)
	out = append(out, signDomain...)
	out = append(out, 0)
	out = append(out, kind...)
	out = append(out, 0)
	out = append(out, seqBuf[:]...)
	out = append(out, signer...)
	out = append(out, 0)
	out = append(out, sum[:]...)
	return out
}

// Sign fills in the envelope signature.
func Sign(env *Envelope, priv ed25519.PrivateKey) {
	env.Sig = ed25519.Sign(priv, SignBytes(env.Kind, env.Value, env.Seq, env.Signer))
}

// Verify checks the envelope signature against pub. It also rejects
// structurally unsigned envelopes, so callers need no separate presence
// check.
func Verify(env Envelope, pub ed25519.PublicKey) error {
	if len(env.Sig) != ed25519.SignatureSize {
		return fmt.Errorf("invalid sig length: got %d want %d", len(env.Sig), ed25519.SignatureSize)
	}
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid pub key length: got %d want %d", len(pub), ed25519.PublicKeySize)
	}
	if !ed25519.Verify(pub, SignBytes(env.Kind, env.Value, env.Seq, env.Signer), env.Sig) {
		return fmt.Errorf("invalid signature for signer %q", env.Signer)
	}
	return nil
}
