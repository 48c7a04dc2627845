package fare

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TransportType identifies the vehicle class of a route. The value is the
// single-byte code written to the fare file.
type TransportType uint8

const (
	Metro         TransportType = 0x01
	UrbanBus      TransportType = 0x02
	Trolleybus    TransportType = 0x04
	Tram          TransportType = 0x08
	Minibus       TransportType = 0x10
	SuburbanBus   TransportType = 0x20
	IntercityBus  TransportType = 0x40
	SuburbanTrain TransportType = 0x80
)

var transportNames = map[TransportType]string{
	Metro:         "metro",
	UrbanBus:      "urban_bus",
	Trolleybus:    "trolleybus",
	Tram:          "tram",
	Minibus:       "minibus",
	SuburbanBus:   "suburban_bus",
	IntercityBus:  "intercity_bus",
	SuburbanTrain: "suburban_train",
}

// TransportTypes lists every known type in code order.
func TransportTypes() []TransportType {
	return []TransportType{Metro, UrbanBus, Trolleybus, Tram, Minibus, SuburbanBus, IntercityBus, SuburbanTrain}
}

func (t TransportType) Valid() bool {
	_, ok := transportNames[t]
	return ok
}

// SingleZone reports whether routes of this type consist of exactly one zone.
func (t TransportType) SingleZone() bool {
	return t == UrbanBus
}

// Code is the two hex digits written in the route descriptor, e.g. "20".
func (t TransportType) Code() string {
	return fmt.Sprintf("%02X", uint8(t))
}

func (t TransportType) String() string {
	if name, ok := transportNames[t]; ok {
		return name
	}
	return "0x" + t.Code()
}

// ParseTransportType accepts "0x20", "20" or "suburban_bus".
func ParseTransportType(s string) (TransportType, error) {
	s = strings.TrimSpace(s)
	for t, name := range transportNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	hex := strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(hex) == 2 {
		if v, err := strconv.ParseUint(hex, 16, 8); err == nil && TransportType(v).Valid() {
			return TransportType(v), nil
		}
	}
	return 0, fmt.Errorf("unknown transport type %q", s)
}

func (t TransportType) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + t.Code())
}

func (t *TransportType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("transport type must be a string: %w", err)
	}
	v, err := ParseTransportType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
