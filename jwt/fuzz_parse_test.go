package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// FuzzParseAccess throws arbitrary strings at the verifier. The only
// acceptable outcomes are a clean parse or a clean error; any panic is a
// bug, and no malformed input may ever produce valid claims.
func FuzzParseAccess(f *testing.F) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		f.Fatalf("generate ed25519 key: %v", err)
	}
	mgr, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		f.Fatalf("NewManager: %v", err)
	}

	valid, err := mgr.CreateAccess("user-1", "fam-1")
	if err != nil {
		f.Fatalf("CreateAccess: %v", err)
	}

	none := jwtv5.NewWithClaims(jwtv5.SigningMethodNone, AccessClaims{UID: "x"})
	noneToken, err := none.SignedString(jwtv5.UnsafeAllowNoneSignatureType)
	if err != nil {
		f.Fatalf("sign alg=none seed: %v", err)
	}

	hs := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, AccessClaims{UID: "x"})
	hsToken, err := hs.SignedString([]byte(pub))
	if err != nil {
		f.Fatalf("sign hs256 seed: %v", err)
	}

	f.Add(valid)
	f.Add(noneToken)
	f.Add(hsToken)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJFZERTQSJ9..")
	f.Add(valid + "tampered")

	f.Fuzz(func(t *testing.T, tokenStr string) {
		claims, err := mgr.ParseAccess(tokenStr)
		if err != nil {
			return
		}
		if claims == nil {
			t.Fatal("nil claims with nil error")
		}
		if claims.UID != "user-1" || claims.FID != "fam-1" {
			t.Fatalf("accepted forged claims: %+v", claims)
		}
	})
}
