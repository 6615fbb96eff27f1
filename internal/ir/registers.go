package ir

// Registers maps every accepted register spelling (x0..x31 and the ABI
// names) to its number.
var Registers = map[string]int{
	"x0": 0, "zero": 0,
	"x1": 1, "ra": 1,
	"x2": 2, "sp": 2,
	"x3": 3, "gp": 3,
	"x4": 4, "tp": 4,
	"x5": 5, "t0": 5,
	"x6": 6, "t1": 6,
	"x7": 7, "t2": 7,
	"x8": 8, "s0": 8, "fp": 8,
	"x9": 9, "s1": 9,
	"x10": 10, "a0": 10,
	"x11": 11, "a1": 11,
	"x12": 12, "a2": 12,
	"x13": 13, "a3": 13,
	"x14": 14, "a4": 14,
	"x15": 15, "a5": 15,
	"x16": 16, "a6": 16,
	"x17": 17, "a7": 17,
	"x18": 18, "s2": 18,
	"x19": 19, "s3": 19,
	"x20": 20, "s4": 20,
	"x21": 21, "s5": 21,
	"x22": 22, "s6": 22,
	"x23": 23, "s7": 23,
	"x24": 24, "s8": 24,
	"x25": 25, "s9": 25,
	"x26": 26, "s10": 26,
	"x27": 27, "s11": 27,
	"x28": 28, "t3": 28,
	"x29": 29, "t4": 29,
	"x30": 30, "t5": 30,
	"x31": 31, "t6": 31,
}

// IsRegisterName reports whether name spells a machine register.
func IsRegisterName(name string) bool {
	_, ok := Registers[name]
	return ok
}

// Reg is a convenience constructor for register arguments produced by
// expansion passes.
func Reg(n int) RegArg {
	return RegArg{Name: regNames[n]}
}

var regNames = [...]string{
	"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7",
	"x8", "x9", "x10", "x11", "x12", "x13", "x14", "x15",
	"x16", "x17", "x18", "x19", "x20", "x21", "x22", "x23",
	"x24", "x25", "x26", "x27", "x28", "x29", "x30", "x31",
}

// ResolveReg maps a register argument to its number using the machine
// table and then the program's alias table. The boolean is false when the
// name is unknown or a numeric operand is out of range.
func (p *Program) ResolveReg(arg RegArg) (int, bool) {
	if arg.Name == "" {
		if arg.Num < 0 || arg.Num > 31 {
			return 0, false
		}
		return int(arg.Num), true
	}
	if n, ok := Registers[arg.Name]; ok {
		return n, true
	}
	if n, ok := p.Aliases[arg.Name]; ok {
		return n, true
	}
	return 0, false
}
