// Package dbutil contains database connection and query building helpers.
package dbutil

import (
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/mzansicare/backend/libs/errors"
)

// DBConfig represents the data needed to connect to a database.
type DBConfig struct {
	Host               string
	Port               int
	Name               string
	User               string
	Password           string
	CACert             string
	TLSCert            string
	TLSKey             string
	MaxOpenConnections int
	MaxIdleConnections int
}

// ConnectMySQL opens a MySQL connection pool and verifies it with a ping.
func ConnectMySQL(c *DBConfig) (*sql.DB, error) {
	if c.User == "" || c.Host == "" || c.Name == "" {
		return nil, errors.New("dbutil: user, host, and name are required")
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}

	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = c.Host + ":" + strconv.Itoa(port)
	cfg.DBName = c.Name
	cfg.ParseTime = true
	cfg.InterpolateParams = true
	cfg.Collation = "utf8mb4_unicode_ci"

	if c.CACert != "" && c.TLSCert != "" && c.TLSKey != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(c.CACert)) {
			return nil, errors.New("dbutil: failed to parse CA cert PEM")
		}
		cert, err := tls.X509KeyPair([]byte(c.TLSCert), []byte(c.TLSKey))
		if err != nil {
			return nil, errors.Trace(err)
		}
		if err := mysql.RegisterTLSConfig("custom", &tls.Config{
			RootCAs:      pool,
			Certificates: []tls.Certificate{cert},
		}); err != nil {
			return nil, errors.Trace(err)
		}
		cfg.TLSConfig = "custom"
	}

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Trace(err)
	}
	if c.MaxOpenConnections != 0 {
		db.SetMaxOpenConns(c.MaxOpenConnections)
	}
	if c.MaxIdleConnections != 0 {
		db.SetMaxIdleConns(c.MaxIdleConnections)
	}
	return db, nil
}

// MySQL error codes
const (
	MySQLDuplicateEntry = 1062 // Duplicate entry for a unique key
	MySQLDeadlock       = 1213 // Deadlock found when trying to get lock; try restarting transaction
)

// IsMySQLError returns true if the err represents a MySQL error of the provided code.
func IsMySQLError(err error, code uint16) bool {
	e, ok := errors.Cause(err).(*mysql.MySQLError)
	return ok && e.Number == code
}
