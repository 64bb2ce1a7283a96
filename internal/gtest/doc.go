// Package gtest contains helpers shared by tests throughout the module.
package gtest
