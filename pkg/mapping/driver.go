package mapping

import (
	"fmt"
	"strings"

	"github.com/authzed/connector-scim/pkg/config"
)

// Backend is a supported relational destination.
type Backend int

const (
	BackendPostgres Backend = iota
	BackendMySQL
	BackendSQLServer
)

func (b Backend) String() string {
	switch b {
	case BackendPostgres:
		return "postgres"
	case BackendMySQL:
		return "mysql"
	case BackendSQLServer:
		return "sqlserver"
	default:
		return "unknown"
	}
}

// DriverName is the database/sql driver registered for the backend.
func (b Backend) DriverName() string {
	switch b {
	case BackendPostgres:
		return "pgx"
	case BackendMySQL:
		return "mysql"
	default:
		return "sqlserver"
	}
}

var driverAliases = map[string]Backend{
	"postgres":   BackendPostgres,
	"postgresql": BackendPostgres,
	"pgx":        BackendPostgres,
	"npgsql":     BackendPostgres,

	"mysql":           BackendMySQL,
	"mariadb":         BackendMySQL,
	"mysql.data":      BackendMySQL,
	"mysqlconnector":  BackendMySQL,
	"mysql.connector": BackendMySQL,

	"sqlserver":                BackendSQLServer,
	"mssql":                    BackendSQLServer,
	"sqlclient":                BackendSQLServer,
	"system.data.sqlclient":    BackendSQLServer,
	"microsoft.data.sqlclient": BackendSQLServer,
}

// ClassifyDriver maps a tenant-supplied driver name onto a backend.
func ClassifyDriver(driver string) (Backend, error) {
	b, ok := driverAliases[strings.ToLower(strings.TrimSpace(driver))]
	if !ok {
		return 0, &UnsupportedDriverError{Driver: driver}
	}
	return b, nil
}

var wireTypes = map[Backend]map[config.DestinationType]string{
	BackendPostgres: {
		config.TypeString:           "text",
		config.TypeText:             "text",
		config.TypeNText:            "text",
		config.TypeXML:              "xml",
		config.TypeChar:             "bpchar",
		config.TypeNChar:            "bpchar",
		config.TypeVarChar:          "varchar",
		config.TypeNVarChar:         "varchar",
		config.TypeBoolean:          "boolean",
		config.TypeBit:              "boolean",
		config.TypeTinyInt:          "smallint",
		config.TypeSmallInt:         "smallint",
		config.TypeInt:              "integer",
		config.TypeLong:             "bigint",
		config.TypeBigInt:           "bigint",
		config.TypeDecimal:          "numeric",
		config.TypeNumeric:          "numeric",
		config.TypeMoney:            "money",
		config.TypeSmallMoney:       "money",
		config.TypeDouble:           "double precision",
		config.TypeFloat:            "double precision",
		config.TypeReal:             "real",
		config.TypeDateTime:         "timestamp",
		config.TypeDateTime2:        "timestamp",
		config.TypeSmallDateTime:    "timestamp",
		config.TypeDateTimeOffset:   "timestamptz",
		config.TypeDate:             "date",
		config.TypeTime:             "time",
		config.TypeBinary:           "bytea",
		config.TypeVarBinary:        "bytea",
		config.TypeImage:            "bytea",
		config.TypeGuid:             "uuid",
		config.TypeUniqueIdentifier: "uuid",
	},
	BackendMySQL: {
		config.TypeString:           "text",
		config.TypeText:             "text",
		config.TypeNText:            "text",
		config.TypeXML:              "text",
		config.TypeChar:             "char",
		config.TypeNChar:            "nchar",
		config.TypeVarChar:          "varchar",
		config.TypeNVarChar:         "nvarchar",
		config.TypeBoolean:          "boolean",
		config.TypeBit:              "bit",
		config.TypeTinyInt:          "tinyint unsigned",
		config.TypeSmallInt:         "smallint",
		config.TypeInt:              "int",
		config.TypeLong:             "bigint",
		config.TypeBigInt:           "bigint",
		config.TypeDecimal:          "decimal",
		config.TypeNumeric:          "decimal",
		config.TypeMoney:            "decimal(19,4)",
		config.TypeSmallMoney:       "decimal(10,4)",
		config.TypeDouble:           "double",
		config.TypeFloat:            "double",
		config.TypeReal:             "float",
		config.TypeDateTime:         "datetime",
		config.TypeDateTime2:        "datetime(6)",
		config.TypeSmallDateTime:    "datetime",
		config.TypeDateTimeOffset:   "timestamp",
		config.TypeDate:             "date",
		config.TypeTime:             "time",
		config.TypeBinary:           "binary",
		config.TypeVarBinary:        "varbinary",
		config.TypeImage:            "longblob",
		config.TypeGuid:             "char(36)",
		config.TypeUniqueIdentifier: "char(36)",
	},
	BackendSQLServer: {
		config.TypeString:           "nvarchar(max)",
		config.TypeText:             "text",
		config.TypeNText:            "ntext",
		config.TypeXML:              "xml",
		config.TypeChar:             "char",
		config.TypeNChar:            "nchar",
		config.TypeVarChar:          "varchar",
		config.TypeNVarChar:         "nvarchar",
		config.TypeBoolean:          "bit",
		config.TypeBit:              "bit",
		config.TypeTinyInt:          "tinyint",
		config.TypeSmallInt:         "smallint",
		config.TypeInt:              "int",
		config.TypeLong:             "bigint",
		config.TypeBigInt:           "bigint",
		config.TypeDecimal:          "decimal",
		config.TypeNumeric:          "numeric",
		config.TypeMoney:            "money",
		config.TypeSmallMoney:       "smallmoney",
		config.TypeDouble:           "float",
		config.TypeFloat:            "float",
		config.TypeReal:             "real",
		config.TypeDateTime:         "datetime",
		config.TypeDateTime2:        "datetime2",
		config.TypeSmallDateTime:    "smalldatetime",
		config.TypeDateTimeOffset:   "datetimeoffset",
		config.TypeDate:             "date",
		config.TypeTime:             "time",
		config.TypeBinary:           "binary",
		config.TypeVarBinary:        "varbinary",
		config.TypeImage:            "image",
		config.TypeGuid:             "uniqueidentifier",
		config.TypeUniqueIdentifier: "uniqueidentifier",
	},
}

// WireType returns the backend column type a parameter is bound as. Fixed
// width types include their declared length; a negative length renders as
// "max" on SQL Server.
func (p TypedParameter) WireType(b Backend) (string, error) {
	base, ok := wireTypes[b][p.Type]
	if !ok {
		return "", fmt.Errorf("destination type %s has no %s column type", p.Type, b)
	}
	if !p.Type.FixedWidth() || p.Length == 0 {
		return base, nil
	}
	if p.Length < 0 {
		if b == BackendSQLServer {
			return base + "(max)", nil
		}
		return base, nil
	}
	return fmt.Sprintf("%s(%d)", base, p.Length), nil
}
