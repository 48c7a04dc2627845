package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fareroute/internal/fare"
	"fareroute/internal/geometry"
	"fareroute/internal/middleware"
	"fareroute/internal/service"
)

// RouteResponse is the API view of a route. Geometry is GeoJSON and the
// price matrix uses the row shape the editor posts back.
type RouteResponse struct {
	ID            uint                  `json:"ID"`
	CreatedAt     time.Time             `json:"CreatedAt"`
	UpdatedAt     time.Time             `json:"UpdatedAt"`
	Version       int                   `json:"version"`
	State         fare.State            `json:"state"`
	StopsSet      bool                  `json:"stops_set"`
	IsCompleted   bool                  `json:"is_completed"`
	RouteName     string                `json:"route_name"`
	TransportType fare.TransportType    `json:"transport_type"`
	CarrierID     string                `json:"carrier_id"`
	UnitID        string                `json:"unit_id"`
	RouteNumber   string                `json:"route_number"`
	RegionCode    string                `json:"region_code"`
	DecimalPlaces int                   `json:"decimal_places"`
	TariffTables  []fare.TariffTable    `json:"tariff_tables"`
	Stops         []fare.Stop           `json:"stops"`
	PriceMatrix   [][]map[string]string `json:"price_matrix"`
	Geometry      string                `json:"geometry,omitempty"`
}

// RouteSummary is one row of a route listing.
type RouteSummary struct {
	ID            uint               `json:"ID"`
	UpdatedAt     time.Time          `json:"UpdatedAt"`
	Version       int                `json:"version"`
	State         fare.State         `json:"state"`
	RouteName     string             `json:"route_name"`
	RouteNumber   string             `json:"route_number"`
	TransportType fare.TransportType `json:"transport_type"`
	OwnerID       uint               `json:"owner_id"`
}

func toRouteResponse(r fare.Route) RouteResponse {
	jsonGeom, _ := geometry.ToGeoJSON(r.Geometry)
	return RouteResponse{
		ID:            r.ID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Version:       r.Version,
		State:         r.State(),
		StopsSet:      r.StopsSet,
		IsCompleted:   r.IsCompleted,
		RouteName:     r.RouteName,
		TransportType: r.TransportType,
		CarrierID:     r.CarrierID,
		UnitID:        r.UnitID,
		RouteNumber:   r.RouteNumber,
		RegionCode:    r.RegionCode,
		DecimalPlaces: r.DecimalPlaces,
		TariffTables:  r.TariffTables,
		Stops:         r.Stops,
		PriceMatrix:   r.Prices.Rows(len(r.Stops)),
		Geometry:      jsonGeom,
	}
}

func toRouteSummaries(routes []fare.Route) []RouteSummary {
	out := make([]RouteSummary, 0, len(routes))
	for _, r := range routes {
		out = append(out, RouteSummary{
			ID:            r.ID,
			UpdatedAt:     r.UpdatedAt,
			Version:       r.Version,
			State:         r.State(),
			RouteName:     r.RouteName,
			RouteNumber:   r.RouteNumber,
			TransportType: r.TransportType,
			OwnerID:       r.OwnerID,
		})
	}
	return out
}

type RouteController struct {
	routes *service.RouteService
}

func NewRouteController(routes *service.RouteService) *RouteController {
	return &RouteController{routes: routes}
}

func (rc *RouteController) CreateRoute(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input service.InfoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	route, err := rc.routes.Create(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": toRouteResponse(route)})
}

func (rc *RouteController) ListRoutes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	routes, err := rc.routes.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toRouteSummaries(routes)})
}

// ListAllRoutes is the admin listing across every operator.
func (rc *RouteController) ListAllRoutes(c *gin.Context) {
	routes, err := rc.routes.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toRouteSummaries(routes)})
}

func (rc *RouteController) GetRoute(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := routeID(c)
	if !ok {
		return
	}
	route, err := rc.routes.Get(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toRouteResponse(route)})
}

func (rc *RouteController) UpdateInfo(c *gin.Context) {
	var input service.InfoInput
	rc.saveStage(c, &input, func(userID, id uint) (fare.Route, error) {
		return rc.routes.SaveInfo(c.Request.Context(), userID, id, input)
	})
}

func (rc *RouteController) UpdateStops(c *gin.Context) {
	var input service.StopsInput
	rc.saveStage(c, &input, func(userID, id uint) (fare.Route, error) {
		return rc.routes.SaveStops(c.Request.Context(), userID, id, input)
	})
}

func (rc *RouteController) UpdatePrices(c *gin.Context) {
	var input service.PricesInput
	rc.saveStage(c, &input, func(userID, id uint) (fare.Route, error) {
		return rc.routes.SavePrices(c.Request.Context(), userID, id, input)
	})
}

func (rc *RouteController) DeleteRoute(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := routeID(c)
	if !ok {
		return
	}
	if err := rc.routes.Delete(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "route deleted"})
}

// saveStage binds input and runs save for the caller's route.
func (rc *RouteController) saveStage(c *gin.Context, input any, save func(userID, id uint) (fare.Route, error)) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := routeID(c)
	if !ok {
		return
	}
	if err := c.ShouldBindJSON(input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	route, err := save(userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.Log(c).WithFields(logrus.Fields{"route_id": route.ID, "state": route.State()}).Info("route stage saved")
	c.JSON(http.StatusOK, gin.H{"data": toRouteResponse(route)})
}
