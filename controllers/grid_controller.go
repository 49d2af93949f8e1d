package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coralcollective/coral/grid"
	"github.com/coralcollective/coral/utils"
)

// GridController exposes carbon intensity readings and the raw data proxy.
type GridController struct {
	oracle *grid.Oracle
}

func NewGridController(oracle *grid.Oracle) *GridController {
	return &GridController{oracle: oracle}
}

// CarbonIntensity returns the current reading plus the decision tier derived
// from it, so clients render exactly what the server will enforce on a claim.
func (g *GridController) CarbonIntensity(ctx *gin.Context) {
	reading := g.oracle.Current(ctx.Request.Context())
	tier := grid.TierFor(reading.Intensity)
	utils.Success(ctx, gin.H{
		"reading":    reading,
		"tier":       tier,
		"multiplier": tier.Multiplier(),
		"advice":     tier.Advice(),
	})
}

// CarbonData proxies the upstream electricity payload unmodified. Unlike the
// intensity endpoint there is no simulated fallback here; when upstream is
// down the client is told so.
func (g *GridController) CarbonData(ctx *gin.Context) {
	hours, _ := strconv.Atoi(ctx.Query("hours"))
	raw, err := g.oracle.Raw(ctx.Request.Context(), grid.RawQuery{
		Metrics:  ctx.Query("metrics"),
		Interval: ctx.Query("interval"),
		Hours:    hours,
	})
	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   "carbon data upstream unavailable",
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    raw,
	})
}
