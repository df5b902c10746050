package oauth

import "testing"

func TestVerifyPKCEChallengeKnownVector(t *testing.T) {
	const verifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	const challenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	if !VerifyPKCEChallenge(verifier, challenge) {
		t.Fatalf("expected verifier %q to match challenge %q", verifier, challenge)
	}
}

func TestVerifyPKCEChallengeMismatch(t *testing.T) {
	const verifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	const wrongChallenge = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	if VerifyPKCEChallenge(verifier, wrongChallenge) {
		t.Fatal("expected mismatched challenge to fail verification")
	}
}

func TestVerifyPKCEChallengeSwappedInputs(t *testing.T) {
	const verifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	const challenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	if VerifyPKCEChallenge(challenge, verifier) {
		t.Fatal("expected swapped verifier/challenge to fail verification")
	}
}

func TestValidCodeVerifier(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  bool
	}{
		{"valid", "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk", true},
		{"too short", "short", false},
		{"invalid chars", "this has spaces and $ymbols!!!!!!!!!!!!!!!!", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidCodeVerifier(tc.value); got != tc.want {
				t.Errorf("ValidCodeVerifier(%q) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestValidCodeChallenge(t *testing.T) {
	if !ValidCodeChallenge("E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM") {
		t.Fatal("expected well-formed challenge to validate")
	}
	if ValidCodeChallenge("too-short") {
		t.Fatal("expected short challenge to fail validation")
	}
}
