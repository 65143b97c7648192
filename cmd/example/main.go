// Command example runs a registration and authentication round trip against
// an authenticator exposed as a raw hidraw device, e.g. /dev/hidraw0 on
// Linux. Any io.ReadWriter speaking CTAPHID works, including a software
// authenticator behind a socket.
package main

import (
	"crypto/sha256"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-ctap/fido2/pkg/assertion"
	"github.com/go-ctap/fido2/pkg/attestation"
	"github.com/go-ctap/fido2/pkg/ctap"
	"github.com/go-ctap/fido2/pkg/ctaphid"
	"github.com/go-ctap/fido2/pkg/ctaptypes"
	"github.com/go-ctap/fido2/pkg/options"
	"github.com/go-ctap/fido2/pkg/webauthntypes"
	"github.com/ldclabs/cose/iana"
)

func main() {
	devicePath := flag.String("device", "/dev/hidraw0", "path to the CTAPHID device")
	flag.Parse()

	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelDebug)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))

	dev, err := os.OpenFile(*devicePath, os.O_RDWR, 0)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = dev.Close()
	}()

	session, err := ctaphid.NewSession(dev, options.WithLogger(logger))
	if err != nil {
		panic(err)
	}
	client := ctap.NewClient(session, options.WithLogger(logger))

	info, err := client.GetInfo()
	if err != nil {
		panic(err)
	}
	fmt.Printf("Versions: %v\n", info.Versions)
	fmt.Printf("AAGUID:   %s\n", info.AAGUID)

	clientDataHash := sha256.Sum256([]byte(`{"type":"webauthn.create","challenge":"tZf1QbYbHvMh4SoE"}`))

	fmt.Println("Touch your authenticator to register...")
	mcResp, err := client.MakeCredential(
		0, nil,
		clientDataHash[:],
		webauthntypes.PublicKeyCredentialRpEntity{ID: "example.com", Name: "Example"},
		webauthntypes.PublicKeyCredentialUserEntity{ID: []byte("user-1"), Name: "alice", DisplayName: "Alice"},
		[]webauthntypes.PublicKeyCredentialParameters{
			{Type: webauthntypes.PublicKeyCredentialTypePublicKey, Algorithm: iana.AlgorithmES256},
			{Type: webauthntypes.PublicKeyCredentialTypePublicKey, Algorithm: iana.AlgorithmEdDSA},
		},
		nil, nil, nil, 0, nil,
	)
	if err != nil {
		panic(err)
	}

	obj, err := attestation.NewObject(mcResp, clientDataHash[:])
	if err != nil {
		panic(err)
	}
	result, err := attestation.Verify(obj, attestation.TrustPolicy{Kind: attestation.PolicyNone})
	if err != nil {
		panic(err)
	}
	fmt.Printf("Attestation format %q verified, type %s\n", mcResp.Format, result.Type)

	credData := mcResp.AuthData.AttestedCredentialData
	tracker := assertion.NewCounterTracker()

	getDataHash := sha256.Sum256([]byte(`{"type":"webauthn.get","challenge":"Fy3FXqlYZyA0dIvs"}`))

	fmt.Println("Touch your authenticator to sign in...")
	for resp, err := range client.GetAssertion(
		0, nil,
		"example.com",
		getDataHash[:],
		[]webauthntypes.PublicKeyCredentialDescriptor{{
			Type: webauthntypes.PublicKeyCredentialTypePublicKey,
			ID:   credData.CredentialID,
		}},
		nil,
		map[ctaptypes.Option]bool{ctaptypes.OptionUserPresence: true},
	) {
		if err != nil {
			panic(err)
		}

		if err := assertion.Verify(getDataHash[:], resp.AuthDataRaw, resp.Signature, credData.CredentialPublicKey); err != nil {
			panic(err)
		}
		if err := tracker.Observe(resp.Credential.ID, resp.AuthData.SignCount); err != nil {
			panic(err)
		}

		fmt.Printf("Assertion verified, sign count %d\n", resp.AuthData.SignCount)
	}
}
