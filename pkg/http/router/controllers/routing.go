package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"
	helper "github.com/F0rt1s/routing/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

type routingAPI struct {
	routingService RoutingService
	log            *zap.Logger
}

func New(routingService RoutingService, log *zap.Logger) *routingAPI {
	return &routingAPI{
		routingService: routingService,
		log:            log,
	}
}

func (api *routingAPI) Routes(group *helper.RouteGroup) {
	group.GET("/route", api.shortestPath)
	group.GET("/resolve", api.resolve)
	group.GET("/connectivity", api.connectivity)
	group.POST("/matrix", api.matrix)
}

func (api *routingAPI) validateStruct(v interface{}) []string {
	validate := validator.New()
	if err := validate.Struct(v); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)

		msgs := []string{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, v := range verrs.Translate(trans) {
				msgs = append(msgs, v)
			}
		} else {
			msgs = append(msgs, err.Error())
		}
		return msgs
	}
	return nil
}

func queryFloat(query map[string][]string, key string) (float64, error) {
	vals, ok := query[key]
	if !ok || len(vals) == 0 {
		return 0, fmt.Errorf("%s is required and must be a valid float", key)
	}
	v, err := strconv.ParseFloat(vals[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%s is required and must be a valid float", key)
	}
	return v, nil
}

func queryProfile(query map[string][]string) string {
	if vals, ok := query["profile"]; ok && len(vals) > 0 {
		return vals[0]
	}
	return "car"
}

func (api *routingAPI) shortestPath(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var (
		request shortestPathRequest
		err     error
	)
	query := r.URL.Query()
	request.Profile = queryProfile(query)
	if request.OriginLat, err = queryFloat(query, "origin_lat"); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if request.OriginLon, err = queryFloat(query, "origin_lon"); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if request.DestinationLat, err = queryFloat(query, "destination_lat"); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if request.DestinationLon, err = queryFloat(query, "destination_lon"); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if msgs := api.validateStruct(request); msgs != nil {
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", msgs))
		return
	}

	route, polyline, err := api.routingService.ShortestPath(r.Context(), request.Profile,
		request.OriginLat, request.OriginLon, request.DestinationLat, request.DestinationLon)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": NewShortestPathResponse(route, polyline)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *routingAPI) resolve(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	query := r.URL.Query()
	lat, err := queryFloat(query, "lat")
	if err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	lon, err := queryFloat(query, "lon")
	if err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	point, err := api.routingService.Resolve(queryProfile(query), lat, lon)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	loc := point.Location()
	resp := resolveResponse{
		EdgeID: int32(point.EdgeID()),
		Offset: point.Offset(),
		Lat:    loc.Lat,
		Lon:    loc.Lon,
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": resp}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *routingAPI) connectivity(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	query := r.URL.Query()
	lat, err := queryFloat(query, "lat")
	if err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	lon, err := queryFloat(query, "lon")
	if err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	radius, err := queryFloat(query, "radius")
	if err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	connected, err := api.routingService.Connectivity(r.Context(), queryProfile(query), lat, lon, radius)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": connectivityResponse{Connected: connected}}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *routingAPI) matrix(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request matrixRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		api.BadRequestResponse(w, r, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if msgs := api.validateStruct(request); msgs != nil {
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", msgs))
		return
	}

	weights, invalidSources, invalidTargets, err := api.routingService.Matrix(r.Context(),
		request.Profile, request.sourceCoords(), request.targetCoords())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	resp := matrixResponse{
		Weights:        weights,
		InvalidSources: invalidSources,
		InvalidTargets: invalidTargets,
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": resp}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}
