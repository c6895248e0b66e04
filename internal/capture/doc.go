// Package capture produces fixed-size audio blocks from an input device.
package capture
