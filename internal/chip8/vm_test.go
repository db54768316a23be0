package chip8_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/mnafees/c8host/internal/chip8"
)

func load(t *testing.T, program ...byte) *chip8.C8VM {
	t.Helper()
	vm := chip8.NewC8VM(rand.New(rand.NewSource(1)))
	if err := vm.Load(program); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return vm
}

func steps(t *testing.T, vm *chip8.C8VM, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := vm.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestLoad(t *testing.T) {
	vm := chip8.NewC8VM(nil)
	if err := vm.Load(make([]byte, 0x1000-0x200)); err != nil {
		t.Fatalf("max size program: %v", err)
	}
	if err := vm.Load(make([]byte, 0x1000-0x200+1)); !errors.Is(err, chip8.ErrProgramTooLarge) {
		t.Fatalf("got %v, want %v", err, chip8.ErrProgramTooLarge)
	}
	if vm.PC() != 0x200 {
		t.Fatalf("got PC %03X, want 200", vm.PC())
	}
}

func TestLoadResets(t *testing.T) {
	vm := load(t, 0x60, 0x2A, 0x00, 0xE0) // LD V0, 2A
	steps(t, vm, 1)
	vm.SetKey(3, true)
	if err := vm.Load([]byte{0xF1, 0x0A}); err != nil { // LD V1, K
		t.Fatal(err)
	}
	if vm.V(0) != 0 {
		t.Fatalf("got V0 %02X after reload, want 00", vm.V(0))
	}
	steps(t, vm, 1)
	if vm.PC() != 0x200 {
		t.Fatalf("got PC %03X, want key wait at 200 since keys were reset", vm.PC())
	}
}

func TestOversizedLoadKeepsState(t *testing.T) {
	vm := load(t, 0x60, 0x2A)
	steps(t, vm, 1)
	if err := vm.Load(make([]byte, 0x1000)); err == nil {
		t.Fatal("expected error")
	}
	if vm.V(0) != 0x2A || vm.PC() != 0x202 {
		t.Fatalf("got V0 %02X PC %03X, want state preserved", vm.V(0), vm.PC())
	}
}

func TestTickTimers(t *testing.T) {
	vm := load(t,
		0x60, 0x02, // LD V0, 2
		0xF0, 0x15, // LD DT, V0
		0xF0, 0x18, // LD ST, V0
	)
	steps(t, vm, 3)
	for i := 0; i < 5; i++ {
		vm.TickTimers()
	}
	if vm.DelayTimer() != 0 || vm.SoundTimer() != 0 {
		t.Fatalf("got DT %d ST %d, want timers floored at 0", vm.DelayTimer(), vm.SoundTimer())
	}
	vm.TickTimers()
	if vm.DelayTimer() != 0 {
		t.Fatalf("got DT %d, want 0", vm.DelayTimer())
	}
}

func TestTimerReadBack(t *testing.T) {
	vm := load(t,
		0x60, 0x05, // LD V0, 5
		0xF0, 0x15, // LD DT, V0
		0xF1, 0x07, // LD V1, DT
	)
	steps(t, vm, 2)
	vm.TickTimers()
	steps(t, vm, 1)
	if vm.V(1) != 4 {
		t.Fatalf("got V1 %d, want 4", vm.V(1))
	}
}

func TestKeys(t *testing.T) {
	program := []byte{
		0x60, 0x05, // LD V0, 5
		0xE0, 0x9E, // SKP V0
		0x61, 0x01, // LD V1, 1
		0x62, 0x02, // LD V2, 2
	}

	vm := load(t, program...)
	vm.SetKey(5, true)
	steps(t, vm, 3)
	if vm.V(1) != 0 || vm.V(2) != 2 {
		t.Fatalf("pressed: got V1 %d V2 %d, want skip", vm.V(1), vm.V(2))
	}

	vm = load(t, program...)
	vm.SetKey(5, true)
	vm.SetKey(5, false)
	steps(t, vm, 3)
	if vm.V(1) != 1 {
		t.Fatalf("released: got V1 %d, want 1", vm.V(1))
	}
}

func TestReleaseUnpressedKey(t *testing.T) {
	vm := load(t,
		0x60, 0x05, // LD V0, 5
		0xE0, 0xA1, // SKNP V0
		0x61, 0x01, // LD V1, 1
	)
	// releasing a key that was never pressed must not press it
	vm.SetKey(5, false)
	steps(t, vm, 3)
	if vm.PC() != 0x208 {
		t.Fatalf("got PC %03X, want 208", vm.PC())
	}
}

func TestWaitForKey(t *testing.T) {
	vm := load(t, 0xF3, 0x0A) // LD V3, K
	steps(t, vm, 5)
	if vm.PC() != 0x200 {
		t.Fatalf("got PC %03X, want 200 while no key is held", vm.PC())
	}
	vm.SetKey(0xB, true)
	steps(t, vm, 1)
	if vm.PC() != 0x202 || vm.V(3) != 0xB {
		t.Fatalf("got PC %03X V3 %X, want 202 and B", vm.PC(), vm.V(3))
	}
}

func TestDrawAndCollision(t *testing.T) {
	vm := load(t,
		0x60, 0x00, // LD V0, 0
		0xF0, 0x29, // LD F, V0
		0x61, 0x3E, // LD V1, 62
		0x62, 0x01, // LD V2, 1
		0xD1, 0x25, // DRW V1, V2, 5
		0xD1, 0x25, // DRW V1, V2, 5
	)
	steps(t, vm, 5)

	fb := vm.Framebuffer()
	if fb.Width != chip8.ScreenWidth || fb.Height != chip8.ScreenHeight {
		t.Fatalf("got %dx%d, want 64x32", fb.Width, fb.Height)
	}
	// top row of the "0" glyph is F0: x=62,63 then wraps to 0,1
	for _, x := range []int{62, 63, 0, 1} {
		if !fb.At(x, 1) {
			t.Errorf("pixel (%d, 1) not set", x)
		}
	}
	if fb.At(2, 1) {
		t.Error("pixel (2, 1) set, want clear")
	}
	if vm.V(0xF) != 0 {
		t.Fatalf("got VF %d on first draw, want 0", vm.V(0xF))
	}

	steps(t, vm, 1)
	if vm.V(0xF) != 1 {
		t.Fatalf("got VF %d on redraw, want 1", vm.V(0xF))
	}
	for _, px := range vm.Framebuffer().Pixels {
		if px {
			t.Fatal("redraw did not erase the sprite")
		}
	}
}

func TestClearScreen(t *testing.T) {
	vm := load(t,
		0xD0, 0x05, // DRW V0, V0, 5
		0x00, 0xE0, // CLS
	)
	steps(t, vm, 1)
	if !vm.Framebuffer().At(0, 0) {
		t.Fatal("sprite not drawn")
	}
	steps(t, vm, 1)
	for _, px := range vm.Framebuffer().Pixels {
		if px {
			t.Fatal("CLS left pixels set")
		}
	}
}

func TestFramebufferIsCopy(t *testing.T) {
	vm := load(t)
	fb := vm.Framebuffer()
	fb.Pixels[0] = true
	if vm.Framebuffer().Pixels[0] {
		t.Fatal("framebuffer aliases VM memory")
	}
}

func TestCallReturn(t *testing.T) {
	vm := load(t,
		0x22, 0x06, // CALL 206
		0x61, 0x07, // LD V1, 7
		0x12, 0x04, // JP 204
		0x60, 0x09, // LD V0, 9
		0x00, 0xEE, // RET
	)
	steps(t, vm, 4)
	if vm.V(0) != 9 || vm.V(1) != 7 {
		t.Fatalf("got V0 %d V1 %d, want 9 and 7", vm.V(0), vm.V(1))
	}
}

func TestStackErrors(t *testing.T) {
	vm := load(t, 0x00, 0xEE)
	if err := vm.Step(); !errors.Is(err, chip8.ErrStackUnderflow) {
		t.Fatalf("got %v, want %v", err, chip8.ErrStackUnderflow)
	}

	vm = load(t, 0x22, 0x00) // CALL 200 forever
	var err error
	for i := 0; i < 17 && err == nil; i++ {
		err = vm.Step()
	}
	if !errors.Is(err, chip8.ErrStackOverflow) {
		t.Fatalf("got %v, want %v", err, chip8.ErrStackOverflow)
	}
}

func TestUnknownOpcode(t *testing.T) {
	for _, op := range [][]byte{{0x01, 0x23}, {0x50, 0x01}, {0x80, 0x08}, {0xE0, 0x00}, {0xF0, 0xFF}} {
		vm := load(t, op...)
		err := vm.Step()
		var unknown *chip8.UnknownOpcodeError
		if !errors.As(err, &unknown) {
			t.Fatalf("%02X%02X: got %v, want UnknownOpcodeError", op[0], op[1], err)
		}
		if want := uint16(op[0])<<8 | uint16(op[1]); unknown.Opcode != want || unknown.Addr != 0x200 {
			t.Errorf("got %04X at %03X, want %04X at 200", unknown.Opcode, unknown.Addr, want)
		}
	}
}

func TestPCOutOfRange(t *testing.T) {
	vm := load(t, 0x1F, 0xFF) // JP FFF
	steps(t, vm, 1)
	if err := vm.Step(); !errors.Is(err, chip8.ErrPCOutOfRange) {
		t.Fatalf("got %v, want %v", err, chip8.ErrPCOutOfRange)
	}
}

func TestArithmeticFlags(t *testing.T) {
	tests := []struct {
		name   string
		vx, vy byte
		op     byte
		want   byte
		wantVF byte
	}{
		{"add carry", 0xFF, 0x02, 0x4, 0x01, 1},
		{"add", 0x10, 0x02, 0x4, 0x12, 0},
		{"sub", 0x05, 0x03, 0x5, 0x02, 1},
		{"sub equal", 0x05, 0x05, 0x5, 0x00, 1},
		{"sub borrow", 0x03, 0x05, 0x5, 0xFE, 0},
		{"shr", 0x05, 0x00, 0x6, 0x02, 1},
		{"subn", 0x03, 0x05, 0x7, 0x02, 1},
		{"shl", 0x81, 0x00, 0xE, 0x02, 1},
		{"or", 0x0F, 0xF0, 0x1, 0xFF, 0},
		{"and", 0x0F, 0x3C, 0x2, 0x0C, 0},
		{"xor", 0x0F, 0x3C, 0x3, 0x33, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := load(t,
				0x61, tt.vx, // LD V1, vx
				0x62, tt.vy, // LD V2, vy
				0x81, 0x20|tt.op, // 8 1 2 op
			)
			steps(t, vm, 3)
			if vm.V(1) != tt.want {
				t.Errorf("got V1 %02X, want %02X", vm.V(1), tt.want)
			}
			if tt.op >= 0x4 && vm.V(0xF) != tt.wantVF {
				t.Errorf("got VF %d, want %d", vm.V(0xF), tt.wantVF)
			}
		})
	}
}

func TestBCDAndMemory(t *testing.T) {
	vm := load(t,
		0x60, 0xFE, // LD V0, 254
		0xA3, 0x00, // LD I, 300
		0xF0, 0x33, // LD B, V0
		0xF2, 0x65, // LD V2, [I]
	)
	steps(t, vm, 4)
	if vm.V(0) != 2 || vm.V(1) != 5 || vm.V(2) != 4 {
		t.Fatalf("got %d %d %d, want 2 5 4", vm.V(0), vm.V(1), vm.V(2))
	}
}

func TestRandomMask(t *testing.T) {
	vm := load(t, 0xC0, 0x0F) // RND V0, 0F
	steps(t, vm, 1)
	if vm.V(0)&0xF0 != 0 {
		t.Fatalf("got V0 %02X, want upper nibble masked", vm.V(0))
	}
}
