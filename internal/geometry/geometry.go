// Package geometry converts route paths between GeoJSON and the WKB bytes
// kept in the database.
package geometry

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

var ErrNotLineString = errors.New("geometry must be a LineString with at least two points")

// FromGeoJSON parses a GeoJSON LineString and returns WKB bytes. An empty
// string clears the geometry.
func FromGeoJSON(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	var g geom.T
	if err := gjson.Unmarshal([]byte(raw), &g); err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}
	ls, ok := g.(*geom.LineString)
	if !ok || ls.NumCoords() < 2 {
		return nil, ErrNotLineString
	}
	return wkb.Marshal(ls, binary.LittleEndian)
}

// ToGeoJSON converts WKB bytes into a GeoJSON string
func ToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
