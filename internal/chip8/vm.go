// Package chip8 implements a CHIP-8 interpreter that satisfies host.Machine.
package chip8

// Follows the CHIP-8 technical reference found at http://devernay.free.fr/hacks/chip8/C8TECH10.HTM

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/mnafees/c8host/internal/render"
)

// CHIP-8 VM constants
const (
	totalMemory    = 0x1000
	pcStartAddr    = 0x200
	maxProgramSize = totalMemory - pcStartAddr
	stackSize      = 16

	ScreenWidth  = 64
	ScreenHeight = 32
)

// Errors returned by the VM
var (
	ErrProgramTooLarge = errors.New("program size exceeds the maximum size")
	ErrStackOverflow   = errors.New("stack overflow")
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrPCOutOfRange    = errors.New("program counter out of range")
)

// UnknownOpcodeError is returned by Step for instructions the VM does not implement
type UnknownOpcodeError struct {
	Opcode uint16
	Addr   uint16
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode %04X at %03X", e.Opcode, e.Addr)
}

// C8VM is an emulated CHIP-8 VM
type C8VM struct {
	opcode     uint16             // 16-bit opcode of the current instruction
	regV       [16]uint8          // 16 general purpose 8-bit registers
	regI       uint16             // 16-bit register that is generally used to store memory addresses
	delayTimer uint8              // Delay timer
	soundTimer uint8              // Sound timer
	pc         uint16             // Program counter
	sp         uint8              // Stack pointer
	stack      [stackSize]uint16  // A stack of 16 16-bit values
	memory     [totalMemory]uint8 // 4 KB global memory

	// A 16-bit integer to hold the current key values in the form of individual bits.
	// So when 0 is pushed in the keypad, the 0'th bit will be set and so on.
	key uint16

	// 64 px x 32 px display, row-major
	pixels [ScreenWidth * ScreenHeight]bool

	rnd *rand.Rand
}

var fontset = []uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// NewC8VM creates a new instance of an emulated CHIP-8 VM. A nil rnd uses
// the package-level source.
func NewC8VM(rnd *rand.Rand) *C8VM {
	vm := &C8VM{rnd: rnd}
	vm.reset()
	return vm
}

func (vm *C8VM) reset() {
	rnd := vm.rnd
	*vm = C8VM{pc: pcStartAddr, rnd: rnd}
	copy(vm.memory[:], fontset)
}

// Load resets the VM and copies program into memory at 0x200. An oversized
// program is rejected before the VM is touched.
func (vm *C8VM) Load(program []byte) error {
	if len(program) > maxProgramSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrProgramTooLarge, len(program), maxProgramSize)
	}
	vm.reset()
	copy(vm.memory[pcStartAddr:], program)
	return nil
}

// TickTimers decrements the delay and sound timers, stopping at zero
func (vm *C8VM) TickTimers() {
	if vm.delayTimer > 0 {
		vm.delayTimer--
	}
	if vm.soundTimer > 0 {
		vm.soundTimer--
	}
}

// SetKey records keypad key index as pressed or released
func (vm *C8VM) SetKey(index uint8, pressed bool) {
	if index > 0xF {
		return
	}
	if pressed {
		vm.key |= 1 << index
	} else {
		vm.key &^= 1 << index
	}
}

func (vm *C8VM) isKeySet(index uint8) bool {
	mask := uint16(1) << (index & 0xF)
	return vm.key&mask == mask
}

// Framebuffer returns a copy of the display
func (vm *C8VM) Framebuffer() render.Framebuffer {
	pixels := make([]bool, len(vm.pixels))
	copy(pixels, vm.pixels[:])
	return render.Framebuffer{Width: ScreenWidth, Height: ScreenHeight, Pixels: pixels}
}

// DelayTimer returns the current delay timer value
func (vm *C8VM) DelayTimer() uint8 { return vm.delayTimer }

// SoundTimer returns the current sound timer value
func (vm *C8VM) SoundTimer() uint8 { return vm.soundTimer }

// PC returns the program counter
func (vm *C8VM) PC() uint16 { return vm.pc }

// V returns general purpose register x
func (vm *C8VM) V(x uint8) uint8 { return vm.regV[x&0xF] }

func (vm *C8VM) random() uint8 {
	if vm.rnd != nil {
		return uint8(vm.rnd.Intn(256))
	}
	return uint8(rand.Intn(256))
}

func (vm *C8VM) clearScreen() {
	for i := range vm.pixels {
		vm.pixels[i] = false
	}
}

// drawSprite XORs an n-byte sprite from memory[I] at (x, y), wrapping at the
// screen edges. VF is set when a lit pixel is turned off.
func (vm *C8VM) drawSprite(x uint8, y uint8, n uint8) {
	vm.regV[0xF] = 0
	for row := uint16(0); row < uint16(n); row++ {
		spriteByte := vm.memory[(vm.regI+row)%totalMemory]
		for bit := uint16(0); bit < 8; bit++ {
			if spriteByte&(0x80>>bit) == 0 {
				continue
			}
			px := (uint16(x)+bit)%ScreenWidth + ((uint16(y)+row)%ScreenHeight)*ScreenWidth
			if vm.pixels[px] {
				vm.regV[0xF] = 1
			}
			vm.pixels[px] = !vm.pixels[px]
		}
	}
}

func (vm *C8VM) unknownOpcode() error {
	return &UnknownOpcodeError{Opcode: vm.opcode, Addr: vm.pc - 2}
}

// Step fetches, decodes and executes a single instruction
func (vm *C8VM) Step() error {
	if vm.pc > totalMemory-2 {
		return fmt.Errorf("%w: %03X", ErrPCOutOfRange, vm.pc)
	}
	vm.opcode = uint16(vm.memory[vm.pc])<<8 | uint16(vm.memory[vm.pc+1]) // 16-bit instruction opcode
	vm.pc += 2

	x := uint8((vm.opcode >> 8) & 0x000F) // the lower 4 bits of the high byte of the instruction
	y := uint8((vm.opcode >> 4) & 0x000F) // the upper 4 bits of the low byte of the instruction
	n := uint8(vm.opcode & 0x000F)        // the lowest 4 bits of the instruction
	kk := uint8(vm.opcode & 0x00FF)       // the lowest 8 bits of the instruction
	nnn := vm.opcode & 0x0FFF             // the lowest 12 bits of the instruction

	switch vm.opcode & 0xF000 { // Compare against the first 4 bits of the instruction only
	case 0x0000:
		switch vm.opcode {
		case 0x0000: // NOP
		case 0x00E0: // CLS
			vm.clearScreen()
		case 0x00EE: // RET
			if vm.sp == 0 {
				return ErrStackUnderflow
			}
			vm.sp--
			vm.pc = vm.stack[vm.sp]
		default:
			return vm.unknownOpcode()
		}
	case 0x1000: // JP nnn
		vm.pc = nnn
	case 0x2000: // CALL nnn
		if int(vm.sp) >= stackSize {
			return ErrStackOverflow
		}
		vm.stack[vm.sp] = vm.pc
		vm.sp++
		vm.pc = nnn
	case 0x3000: // SE Vx, kk
		if vm.regV[x] == kk {
			vm.pc += 2
		}
	case 0x4000: // SNE Vx, kk
		if vm.regV[x] != kk {
			vm.pc += 2
		}
	case 0x5000: // SE Vx, Vy
		if n != 0 {
			return vm.unknownOpcode()
		}
		if vm.regV[x] == vm.regV[y] {
			vm.pc += 2
		}
	case 0x6000: // LD Vx, kk
		vm.regV[x] = kk
	case 0x7000: // ADD Vx, kk
		vm.regV[x] += kk
	case 0x8000:
		return vm.alu(x, y, n)
	case 0x9000: // SNE Vx, Vy
		if n != 0 {
			return vm.unknownOpcode()
		}
		if vm.regV[x] != vm.regV[y] {
			vm.pc += 2
		}
	case 0xA000: // LD I, nnn
		vm.regI = nnn
	case 0xB000: // JP V0, nnn
		vm.pc = nnn + uint16(vm.regV[0])
	case 0xC000: // RND Vx, kk
		vm.regV[x] = vm.random() & kk
	case 0xD000: // DRW Vx, Vy, n
		vm.drawSprite(vm.regV[x], vm.regV[y], n)
	case 0xE000:
		switch kk {
		case 0x9E: // SKP Vx
			if vm.isKeySet(vm.regV[x]) {
				vm.pc += 2
			}
		case 0xA1: // SKNP Vx
			if !vm.isKeySet(vm.regV[x]) {
				vm.pc += 2
			}
		default:
			return vm.unknownOpcode()
		}
	case 0xF000:
		return vm.misc(x, kk)
	}
	return nil
}

// alu executes the 8XYN register operations
func (vm *C8VM) alu(x, y, n uint8) error {
	switch n {
	case 0x0: // LD Vx, Vy
		vm.regV[x] = vm.regV[y]
	case 0x1: // OR Vx, Vy
		vm.regV[x] |= vm.regV[y]
	case 0x2: // AND Vx, Vy
		vm.regV[x] &= vm.regV[y]
	case 0x3: // XOR Vx, Vy
		vm.regV[x] ^= vm.regV[y]
	case 0x4: // ADD Vx, Vy
		sum := uint16(vm.regV[x]) + uint16(vm.regV[y])
		vm.regV[x] = uint8(sum)
		vm.regV[0xF] = flag(sum > 0xFF)
	case 0x5: // SUB Vx, Vy
		noBorrow := vm.regV[x] >= vm.regV[y]
		vm.regV[x] -= vm.regV[y]
		vm.regV[0xF] = flag(noBorrow)
	case 0x6: // SHR Vx {, Vy}
		lsb := vm.regV[x] & 0x01
		vm.regV[x] >>= 1
		vm.regV[0xF] = lsb
	case 0x7: // SUBN Vx, Vy
		noBorrow := vm.regV[y] >= vm.regV[x]
		vm.regV[x] = vm.regV[y] - vm.regV[x]
		vm.regV[0xF] = flag(noBorrow)
	case 0xE: // SHL Vx {, Vy}
		msb := vm.regV[x] >> 7
		vm.regV[x] <<= 1
		vm.regV[0xF] = msb
	default:
		return vm.unknownOpcode()
	}
	return nil
}

// misc executes the FXKK timer, keypad and memory operations
func (vm *C8VM) misc(x, kk uint8) error {
	switch kk {
	case 0x07: // LD Vx, DT
		vm.regV[x] = vm.delayTimer
	case 0x0A: // LD Vx, K
		// Re-run this instruction until a key is held so the host keeps
		// pumping input between steps.
		for i := uint8(0); i <= 0xF; i++ {
			if vm.isKeySet(i) {
				vm.regV[x] = i
				return nil
			}
		}
		vm.pc -= 2
	case 0x15: // LD DT, Vx
		vm.delayTimer = vm.regV[x]
	case 0x18: // LD ST, Vx
		vm.soundTimer = vm.regV[x]
	case 0x1E: // ADD I, Vx
		vm.regI += uint16(vm.regV[x])
	case 0x29: // LD F, Vx
		vm.regI = uint16(vm.regV[x]&0xF) * 5
	case 0x33: // LD B, Vx
		vm.memory[vm.regI%totalMemory] = vm.regV[x] / 100
		vm.memory[(vm.regI+1)%totalMemory] = (vm.regV[x] / 10) % 10
		vm.memory[(vm.regI+2)%totalMemory] = vm.regV[x] % 10
	case 0x55: // LD [I], Vx
		for i := uint16(0); i <= uint16(x); i++ {
			vm.memory[(vm.regI+i)%totalMemory] = vm.regV[i]
		}
	case 0x65: // LD Vx, [I]
		for i := uint16(0); i <= uint16(x); i++ {
			vm.regV[i] = vm.memory[(vm.regI+i)%totalMemory]
		}
	default:
		return vm.unknownOpcode()
	}
	return nil
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
