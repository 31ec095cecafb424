// Package gpio reads the receiver's TX-ready pin.
//
// u-blox modules can raise a GPIO while their I2C output buffer holds data;
// polling the pin is cheaper than an I2C transaction that returns nothing.
package gpio
