package adminapi

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/jewelcraft/storefront/internal/apperr"
	"github.com/jewelcraft/storefront/internal/domain"
	"github.com/jewelcraft/storefront/internal/webserver"
)

// DBMSTableInfo represents table metadata
type DBMSTableInfo struct {
	Name     string `json:"name"`
	RowCount int64  `json:"rowCount"`
	Exists   bool   `json:"exists"`
}

type DBMSInfo struct {
	Dialect string          `json:"dialect"`
	Tables  []DBMSTableInfo `json:"tables"`
}

func registerDbmsRoutes() {
	webserver.ApiGET("/dbms/tables", dbmsListTables)
}

// dbmsListTables reports the row count of every storefront table
func dbmsListTables(c echo.Context) error {
	db := GetDB(c)
	info := DBMSInfo{Dialect: db.Dialector.Name()}
	for _, model := range domain.Tables {
		name, err := tableName(db, model)
		if err != nil {
			return failErr(c, apperr.Internal(err, "Failed to resolve table name"))
		}
		t := DBMSTableInfo{Name: name, Exists: db.Migrator().HasTable(model)}
		if t.Exists {
			if err := db.Model(model).Count(&t.RowCount).Error; err != nil {
				return failErr(c, apperr.Internal(err, "Failed to count "+name))
			}
		}
		info.Tables = append(info.Tables, t)
	}
	return ok(c, info)
}

func tableName(db *gorm.DB, model interface{}) (string, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return "", err
	}
	return stmt.Schema.Table, nil
}
