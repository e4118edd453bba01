// Package utils provides bounded concurrent execution with panic recovery.
package utils
