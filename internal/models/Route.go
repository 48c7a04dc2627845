package models

import (
	"gorm.io/gorm"

	"fareroute/internal/fare"
)

// Route is the stored form of a fare route. Tariff tables, stops and the
// price matrix live in JSON columns, as in the legacy editor.
type Route struct {
	gorm.Model

	UserID        uint   `gorm:"index;not null"`
	RouteName     string `gorm:"size:128"`
	TransportType string `gorm:"size:4"` // "0x20"
	CarrierID     string `gorm:"size:10"`
	UnitID        string `gorm:"size:10"`
	RouteNumber   string `gorm:"size:10"`
	RegionCode    string `gorm:"size:5"`
	DecimalPlaces int

	TariffTables []fare.TariffTable `gorm:"serializer:json"`
	Stops        []fare.Stop        `gorm:"serializer:json"`
	PriceMatrix  fare.PriceMatrix   `gorm:"serializer:json"`

	// Geometry stored as WKB; clients exchange GeoJSON LineStrings.
	Geometry []byte `gorm:"type:bytea"`

	StopsSet    bool
	IsCompleted bool

	// Version guards read-modify-write cycles against lost updates.
	Version int `gorm:"not null;default:1"`
}

// ToFare converts the record into the domain aggregate.
func (r Route) ToFare() (fare.Route, error) {
	tt, err := fare.ParseTransportType(r.TransportType)
	if err != nil {
		return fare.Route{}, err
	}
	out := fare.Route{
		ID:      r.ID,
		OwnerID: r.UserID,
		Version: r.Version,
		Info: fare.Info{
			RouteName:     r.RouteName,
			TransportType: tt,
			CarrierID:     r.CarrierID,
			UnitID:        r.UnitID,
			RouteNumber:   r.RouteNumber,
			RegionCode:    r.RegionCode,
			DecimalPlaces: r.DecimalPlaces,
			TariffTables:  r.TariffTables,
		},
		Stops:       r.Stops,
		Prices:      r.PriceMatrix,
		Geometry:    r.Geometry,
		StopsSet:    r.StopsSet,
		IsCompleted: r.IsCompleted,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if out.Stops == nil {
		out.Stops = []fare.Stop{}
	}
	if out.Prices == nil {
		out.Prices = fare.PriceMatrix{}
	}
	return out, nil
}

// RouteFromFare builds the record for a domain aggregate.
func RouteFromFare(f fare.Route) Route {
	r := Route{
		UserID:        f.OwnerID,
		RouteName:     f.RouteName,
		TransportType: "0x" + f.TransportType.Code(),
		CarrierID:     f.CarrierID,
		UnitID:        f.UnitID,
		RouteNumber:   f.RouteNumber,
		RegionCode:    f.RegionCode,
		DecimalPlaces: f.DecimalPlaces,
		TariffTables:  f.TariffTables,
		Stops:         f.Stops,
		PriceMatrix:   f.Prices,
		Geometry:      f.Geometry,
		StopsSet:      f.StopsSet,
		IsCompleted:   f.IsCompleted,
		Version:       f.Version,
	}
	r.ID = f.ID
	r.CreatedAt = f.CreatedAt
	r.UpdatedAt = f.UpdatedAt
	return r
}
