package auction

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// payloadVersion is bumped whenever the encoded shape changes. Decoding a
// payload with an unrecognised version fails rather than guessing.
const payloadVersion = 1

const wireDateLayout = "2006-01-02"

type payloadEnvelope struct {
	Version int          `json:"version"`
	Records []wireRecord `json:"records"`
}

type wireRecord struct {
	IssueDate       string  `json:"issue_date"`
	CUSIP           string  `json:"cusip"`
	SecurityTerm    string  `json:"security_term"`
	PricePer100     float64 `json:"price_per100"`
	BidToCoverRatio float64 `json:"bid_to_cover_ratio"`
}

// EncodePayload serialises a record sequence into the versioned cache payload
// format. Record order is preserved, so byte-identical input yields
// byte-identical output.
func EncodePayload(records []Record) ([]byte, error) {
	envelope := payloadEnvelope{
		Version: payloadVersion,
		Records: make([]wireRecord, 0, len(records)),
	}

	for _, record := range records {
		envelope.Records = append(envelope.Records, wireRecord{
			IssueDate:       record.IssueDate.UTC().Format(wireDateLayout),
			CUSIP:           record.CUSIP,
			SecurityTerm:    record.SecurityTerm,
			PricePer100:     record.PricePer100,
			BidToCoverRatio: record.BidToCoverRatio,
		})
	}

	return json.Marshal(envelope)
}

// DecodePayload reverses EncodePayload, rejecting unknown payload versions.
func DecodePayload(data []byte) ([]Record, error) {
	var envelope payloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	if envelope.Version != payloadVersion {
		return nil, fmt.Errorf("decode payload: unsupported version %d", envelope.Version)
	}

	records := make([]Record, 0, len(envelope.Records))
	for _, wire := range envelope.Records {
		issued, err := time.ParseInLocation(wireDateLayout, wire.IssueDate, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("decode payload: issue date %q: %w", wire.IssueDate, err)
		}

		records = append(records, Record{
			IssueDate:       issued,
			CUSIP:           wire.CUSIP,
			SecurityTerm:    wire.SecurityTerm,
			PricePer100:     wire.PricePer100,
			BidToCoverRatio: wire.BidToCoverRatio,
		})
	}

	return records, nil
}

// ContentHash digests an encoded payload for cache deduplication.
func ContentHash(payload []byte) string {
	digest := sha256.Sum256(payload)
	return hex.EncodeToString(digest[:])
}
