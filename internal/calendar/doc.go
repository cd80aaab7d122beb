// Package calendar implements the scheduling provider on top of the Google
// Calendar API: free/busy queries resolved into slots where every
// participant is free, and event creation for booked meetings.
package calendar
