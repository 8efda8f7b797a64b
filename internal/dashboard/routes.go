package dashboard

import (
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/bomsync/internal/rack"
	"gorm.io/gorm"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, engine Reconciler) {
	// Embedded static assets (served from assets/ subdir of the embed.FS).
	staticFS, _ := fs.Sub(assetsFS, "assets")
	router.StaticFS("/static", http.FS(staticFS))

	// Pages.
	router.GET("/", handleIndex(db))
	router.GET("/racks/:id", handleRackPage(db))

	// Page fragments polled by app.js.
	router.GET("/partials/racks", handleRackRowsPartial(db))
	router.GET("/partials/activity", handleActivityPartial(db))

	// JSON API mirroring the CLI operations.
	router.GET("/api/racks", handleListRacks(db))
	router.GET("/api/racks/:id", handleGetRack(db))
	router.POST("/api/racks/:id/refresh", handleRefresh(engine))
	router.POST("/api/racks/:id/push", handlePush(engine))
	router.POST("/api/racks/:id/edits", handleRecordEdit(engine))
	router.GET("/api/history", handleHistory(db))
	router.GET("/api/events", handleSSE(db))
}

// dashboardData assembles template data for the status board page. Query
// failures degrade to empty sections rather than a broken page.
func dashboardData(db *gorm.DB) gin.H {
	racks, err := RackBoard(db)
	if err != nil {
		racks = []RackRow{}
	}
	summary, err := Summarize(db)
	if err != nil {
		summary = BoardSummary{}
	}
	activity, err := RecentActivity(db, 15)
	if err != nil {
		activity = []ActivityRow{}
	}
	return gin.H{
		"page":     "board",
		"Racks":    racks,
		"Summary":  summary,
		"Activity": activity,
	}
}

// rackDetailData assembles template data for one rack's detail page.
func rackDetailData(db *gorm.DB, itemNumber string) (gin.H, error) {
	if db == nil {
		return nil, fmt.Errorf("dashboard: no database connection")
	}
	r, err := rack.Get(db, itemNumber)
	if err != nil {
		return nil, err
	}
	history, err := RackActivity(db, itemNumber, 50)
	if err != nil {
		history = []ActivityRow{}
	}
	return gin.H{
		"page":    "rack",
		"Rack":    rackRow(*r),
		"History": history,
	}, nil
}

func handleIndex(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "layout.html", dashboardData(db))
	}
}

func handleRackPage(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemNumber := c.Param("id")
		data, err := rackDetailData(db, itemNumber)
		if err != nil {
			c.HTML(http.StatusNotFound, "layout.html", gin.H{
				"page":       "missing",
				"ItemNumber": itemNumber,
			})
			return
		}
		c.HTML(http.StatusOK, "layout.html", data)
	}
}

func handleRackRowsPartial(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		racks, err := RackBoard(db)
		if err != nil {
			racks = []RackRow{}
		}
		c.HTML(http.StatusOK, "rack-rows", racks)
	}
}

func handleActivityPartial(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		activity, err := RecentActivity(db, 15)
		if err != nil {
			activity = []ActivityRow{}
		}
		c.HTML(http.StatusOK, "activity-rows", activity)
	}
}
