// Package study holds the learning items a study plan is compiled from and
// loads them from the master CSV file.
package study
