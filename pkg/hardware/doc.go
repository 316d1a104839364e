// Package hardware defines the register and bus access the registry needs
// from the FPGA, and a simulator that implements it in memory.
package hardware
