// Package cmd contains the command line interface for the scheduler.
package cmd
