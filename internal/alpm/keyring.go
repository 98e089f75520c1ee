package alpm

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ProtonMail/gopenpgp/v3/crypto"
	"github.com/cockroachdb/errors"
)

// Keyring holds the trusted public keys used to verify detached package
// and database signatures.
type Keyring struct {
	keys []*crypto.Key
	pgp  *crypto.PGPHandle
}

// NewKeyring builds a keyring from already-parsed keys.
func NewKeyring(keys ...*crypto.Key) *Keyring {
	return &Keyring{keys: keys, pgp: crypto.PGP()}
}

// LoadKeyring reads armored public keys, one per file.
func LoadKeyring(paths []string) (*Keyring, error) {
	kr := &Keyring{pgp: crypto.PGP()}
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read PGP key %s", p)
		}
		key, err := crypto.NewKeyFromArmored(string(raw))
		if err != nil {
			return nil, errors.Wrapf(err, "cannot parse PGP key %s", p)
		}
		kr.keys = append(kr.keys, key)
	}
	return kr, nil
}

// VerifyDetached checks a detached signature over data against the
// keyring. Binary and armored signatures are both accepted; any key in
// the ring may satisfy the signature.
func (kr *Keyring) VerifyDetached(data, sig []byte) error {
	if kr == nil || len(kr.keys) == 0 {
		return errors.Wrap(ErrSigInvalid, "no PGP keys configured")
	}

	encoding := crypto.Bytes
	if bytes.HasPrefix(bytes.TrimSpace(sig), []byte("-----BEGIN PGP")) {
		encoding = crypto.Armor
	}

	var lastErr error
	for _, key := range kr.keys {
		verifier, err := kr.pgp.Verify().VerificationKey(key).New()
		if err != nil {
			lastErr = err
			continue
		}
		result, err := verifier.VerifyDetached(data, sig, encoding)
		if err != nil {
			lastErr = err
			continue
		}
		if sigErr := result.SignatureError(); sigErr != nil {
			lastErr = sigErr
			continue
		}
		slog.Debug("signature verified", "key", key.GetHexKeyID())
		return nil
	}
	return errors.Wrapf(ErrSigInvalid, "%v", lastErr)
}

// verifyDetachedFile checks file against its detached signature at
// sigPath. A missing signature file maps to ErrSigMissing.
func (h *Handle) verifyDetachedFile(file, sigPath string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, "cannot read %s", file)
	}
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(ErrSigMissing, filepath.Base(sigPath))
		}
		return errors.Wrapf(err, "cannot read %s", sigPath)
	}
	return h.keyring.VerifyDetached(data, sig)
}
