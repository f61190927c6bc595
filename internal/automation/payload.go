package automation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Payload limits.
const (
	// DefaultMaxSteps caps the number of steps in one payload.
	DefaultMaxSteps = 100

	// MaxSettleDelay is the longest accepted per-step delay.
	MaxSettleDelay = 5 * time.Minute

	// maxCoordinate bounds |x| and |y| before int conversion.
	maxCoordinate = 1 << 20
)

// IsAutomationPayload reports whether text is a JSON object carrying a
// "coordinates" array. The array may be empty.
//
// It never panics and never returns an error; anything that does not parse
// is simply not a payload. Use it to reject foreign scans (product barcodes,
// URLs) before committing to Decode.
func IsAutomationPayload(text string) bool {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return false
	}
	raw, ok := doc["coordinates"]
	if !ok {
		return false
	}
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// Decoder turns payload text into a Plan.
//
// The zero value is not usable; construct with NewDecoder.
type Decoder struct {
	maxSteps int
	logger   Logger
}

// NewDecoder creates a decoder accepting at most maxSteps steps.
// A non-positive maxSteps selects DefaultMaxSteps; a nil logger is allowed.
func NewDecoder(maxSteps int, logger Logger) *Decoder {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Decoder{maxSteps: maxSteps, logger: logger}
}

// defaultDecoder backs the package-level Decode.
var defaultDecoder = NewDecoder(DefaultMaxSteps, nil)

// Decode parses text with default limits. See Decoder.Decode.
func Decode(text string) (*Plan, error) {
	return defaultDecoder.Decode(text)
}

// Decode parses payload text into a Plan.
//
// Decoding is all-or-nothing: one malformed entry discards the whole
// sequence. Absent "action" and "delay" take the defaults (click, 1s);
// an unrecognised action name falls back to click and is logged.
//
// Returns:
//   - *Plan: the decoded steps in payload order
//   - error: ErrInvalidPayloadShape or a *StepError wrapping ErrMalformedStep
func (d *Decoder) Decode(text string) (*Plan, error) {
	var doc struct {
		Coordinates []json.RawMessage `json:"coordinates"`
		Description string            `json:"description"`
		Timestamp   int64             `json:"timestamp"`
	}
	if !IsAutomationPayload(text) {
		return nil, fmt.Errorf("%w: expected an object with a coordinates array", ErrInvalidPayloadShape)
	}
	var meta map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &meta); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayloadShape, err)
	}
	if err := json.Unmarshal(meta["coordinates"], &doc.Coordinates); err != nil {
		return nil, fmt.Errorf("%w: coordinates: %w", ErrInvalidPayloadShape, err)
	}
	// Metadata is best effort; a payload with a non-string description is
	// still a payload.
	if raw, ok := meta["description"]; ok {
		_ = json.Unmarshal(raw, &doc.Description) //nolint:errcheck // optional metadata
	}
	if raw, ok := meta["timestamp"]; ok {
		_ = json.Unmarshal(raw, &doc.Timestamp) //nolint:errcheck // optional metadata
	}

	if len(doc.Coordinates) == 0 {
		return nil, fmt.Errorf("%w: coordinates is empty", ErrInvalidPayloadShape)
	}
	if len(doc.Coordinates) > d.maxSteps {
		return nil, fmt.Errorf("%w: %d steps exceeds maximum of %d", ErrInvalidPayloadShape, len(doc.Coordinates), d.maxSteps)
	}

	steps := make(Sequence, 0, len(doc.Coordinates))
	for i, raw := range doc.Coordinates {
		step, err := d.decodeStep(i, raw)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	return &Plan{
		Steps:       steps,
		Description: doc.Description,
		Timestamp:   doc.Timestamp,
	}, nil
}

// decodeStep builds one Step from a coordinates entry.
func (d *Decoder) decodeStep(index int, raw json.RawMessage) (Step, error) {
	malformed := func(format string, args ...any) error {
		return &StepError{Index: index, Err: ErrMalformedStep, Cause: fmt.Errorf(format, args...)}
	}

	var entry map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entry); err != nil || entry == nil {
		return Step{}, malformed("entry is not an object")
	}

	x, err := decodeCoordinate(entry, "x")
	if err != nil {
		return Step{}, malformed("%w", err)
	}
	y, err := decodeCoordinate(entry, "y")
	if err != nil {
		return Step{}, malformed("%w", err)
	}

	step := Step{X: x, Y: y, Kind: KindClick, Delay: DefaultSettleDelay}

	if rawAction, ok := entry["action"]; ok {
		var name string
		if jsonErr := json.Unmarshal(rawAction, &name); jsonErr != nil {
			name = string(rawAction)
		}
		kind, known := ParseKind(name)
		if !known {
			d.logger.Warn("unknown action, defaulting to click",
				"step", index+1,
				"action", name,
			)
		}
		step.Kind = kind
	}

	if rawDelay, ok := entry["delay"]; ok {
		seconds, numErr := decodeNumber(rawDelay)
		if numErr != nil {
			return Step{}, malformed("delay: %w", numErr)
		}
		if seconds < 0 {
			return Step{}, malformed("delay must not be negative")
		}
		// Compare before converting: large values overflow time.Duration.
		if seconds > MaxSettleDelay.Seconds() {
			return Step{}, malformed("delay exceeds %v", MaxSettleDelay)
		}
		step.Delay = time.Duration(seconds * float64(time.Second))
	}

	return step, nil
}

// decodeCoordinate reads a required integral coordinate.
func decodeCoordinate(entry map[string]json.RawMessage, field string) (int, error) {
	raw, ok := entry[field]
	if !ok {
		return 0, fmt.Errorf("%s is required", field)
	}
	v, err := decodeNumber(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%s must be an integer, got %v", field, v)
	}
	if math.Abs(v) > maxCoordinate {
		return 0, fmt.Errorf("%s out of range: %v", field, v)
	}
	return int(v), nil
}

// decodeNumber accepts a JSON number only. Strings, booleans and null are
// rejected even where encoding/json would coerce them.
func decodeNumber(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("not a number: %w", err)
	}
	return v, nil
}

// EncodePayload renders steps as payload text, the inverse of Decode.
// Description and timestamp are omitted when empty.
func EncodePayload(plan *Plan) (string, error) {
	if plan == nil || len(plan.Steps) == 0 {
		return "", fmt.Errorf("%w: no steps to encode", ErrInvalidPayloadShape)
	}
	doc := struct {
		Coordinates Sequence `json:"coordinates"`
		Description string   `json:"description,omitempty"`
		Timestamp   int64    `json:"timestamp,omitempty"`
	}{
		Coordinates: plan.Steps,
		Description: plan.Description,
		Timestamp:   plan.Timestamp,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshalling payload: %w", err)
	}
	return string(data), nil
}

// SamplePlan returns the reference four-step payload used for trial runs
// and printed test codes.
func SamplePlan(now time.Time) *Plan {
	return &Plan{
		Steps: Sequence{
			{X: 100, Y: 100, Kind: KindClick, Delay: time.Second},
			{X: 200, Y: 150, Kind: KindClick, Delay: 1500 * time.Millisecond},
			{X: 300, Y: 200, Kind: KindDoubleClick, Delay: 2 * time.Second},
			{X: 400, Y: 250, Kind: KindRightClick, Delay: time.Second},
		},
		Description: "Sample laser printing coordinates",
		Timestamp:   now.Unix(),
	}
}

// SamplePayload renders SamplePlan as payload text.
func SamplePayload(now time.Time) (string, error) {
	return EncodePayload(SamplePlan(now))
}
