package utils

import "testing"

func TestGridOfferRoundTrip(t *testing.T) {
	offer := GridOffer{UserID: 7, TaskID: 3, Multiplier: 0.5, Intensity: 420}
	token := SaveGridOffer(offer)
	if token == "" {
		t.Fatal("empty token")
	}

	got, ok := ConsumeGridOffer(token)
	if !ok {
		t.Fatal("token not found")
	}
	if got != offer {
		t.Fatalf("got %+v, want %+v", got, offer)
	}
}

func TestGridOfferSingleUse(t *testing.T) {
	token := SaveGridOffer(GridOffer{UserID: 1, TaskID: 4, Multiplier: 0.5, Intensity: 350})

	if _, ok := ConsumeGridOffer(token); !ok {
		t.Fatal("first consume failed")
	}
	if _, ok := ConsumeGridOffer(token); ok {
		t.Fatal("token consumed twice")
	}
}

func TestGridOfferUnknownToken(t *testing.T) {
	if _, ok := ConsumeGridOffer("not-a-token"); ok {
		t.Fatal("unknown token accepted")
	}
}

func TestGridOfferRestoredAfterFailedUse(t *testing.T) {
	offer := GridOffer{UserID: 9, TaskID: 2, Multiplier: 0.5, Intensity: 410}
	token := SaveGridOffer(offer)

	consumed, ok := ConsumeGridOffer(token)
	if !ok {
		t.Fatal("consume failed")
	}

	RestoreGridOffer(token, consumed)

	got, ok := ConsumeGridOffer(token)
	if !ok {
		t.Fatal("restored token not usable")
	}
	if got != offer {
		t.Fatalf("got %+v, want %+v", got, offer)
	}
}
