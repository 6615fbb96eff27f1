package encoding

import "fmt"

// CSpec describes a compressed mnemonic's operand shape for the parser
// and its encoder. PCRel marks forms whose immediate follows
// branch-target semantics.
type CSpec struct {
	NumRegs int
	HasImm  bool
	PCRel   bool
	Encode  func(regs []int, imm int64) (uint16, error)
}

// Compressed maps every supported C-extension mnemonic to its spec.
var Compressed = map[string]CSpec{
	"c.addi4spn": {NumRegs: 1, HasImm: true, Encode: func(r []int, imm int64) (uint16, error) { return CAddi4spn(r[0], imm) }},
	"c.lw":       {NumRegs: 2, HasImm: true, Encode: func(r []int, imm int64) (uint16, error) { return CLw(r[0], r[1], imm) }},
	"c.sw":       {NumRegs: 2, HasImm: true, Encode: func(r []int, imm int64) (uint16, error) { return CSw(r[0], r[1], imm) }},
	"c.nop":      {Encode: func(r []int, imm int64) (uint16, error) { return CNop(), nil }},
	"c.addi":     {NumRegs: 1, HasImm: true, Encode: func(r []int, imm int64) (uint16, error) { return CAddi(r[0], imm) }},
	"c.jal":      {HasImm: true, PCRel: true, Encode: func(r []int, imm int64) (uint16, error) { return CJal(imm) }},
	"c.li":       {NumRegs: 1, HasImm: true, Encode: func(r []int, imm int64) (uint16, error) { return CLi(r[0], imm) }},
	"c.addi16sp": {HasImm: true, Encode: func(r []int, imm int64) (uint16, error) { return CAddi16sp(imm) }},
	"c.lui":      {NumRegs: 1, HasImm: true, Encode: func(r []int, imm int64) (uint16, error) { return CLui(r[0], imm) }},
	"c.srli":     {NumRegs: 1, HasImm: true, Encode: func(r []int, imm int64) (uint16, error) { return CSrli(r[0], imm) }},
	"c.srai":     {NumRegs: 1, HasImm: true, Encode: func(r []int, imm int64) (uint16, error) { return CSrai(r[0], imm) }},
	"c.andi":     {NumRegs: 1, HasImm: true, Encode: func(r []int, imm int64) (uint16, error) { return CAndi(r[0], imm) }},
	"c.sub":      {NumRegs: 2, Encode: func(r []int, imm int64) (uint16, error) { return CSub(r[0], r[1]) }},
	"c.xor":      {NumRegs: 2, Encode: func(r []int, imm int64) (uint16, error) { return CXor(r[0], r[1]) }},
	"c.or":       {NumRegs: 2, Encode: func(r []int, imm int64) (uint16, error) { return COr(r[0], r[1]) }},
	"c.and":      {NumRegs: 2, Encode: func(r []int, imm int64) (uint16, error) { return CAnd(r[0], r[1]) }},
	"c.j":        {HasImm: true, PCRel: true, Encode: func(r []int, imm int64) (uint16, error) { return CJ(imm) }},
	"c.beqz":     {NumRegs: 1, HasImm: true, PCRel: true, Encode: func(r []int, imm int64) (uint16, error) { return CBeqz(r[0], imm) }},
	"c.bnez":     {NumRegs: 1, HasImm: true, PCRel: true, Encode: func(r []int, imm int64) (uint16, error) { return CBnez(r[0], imm) }},
	"c.slli":     {NumRegs: 1, HasImm: true, Encode: func(r []int, imm int64) (uint16, error) { return CSlli(r[0], imm) }},
	"c.lwsp":     {NumRegs: 1, HasImm: true, Encode: func(r []int, imm int64) (uint16, error) { return CLwsp(r[0], imm) }},
	"c.jr":       {NumRegs: 1, Encode: func(r []int, imm int64) (uint16, error) { return CJr(r[0]) }},
	"c.mv":       {NumRegs: 2, Encode: func(r []int, imm int64) (uint16, error) { return CMv(r[0], r[1]) }},
	"c.ebreak":   {Encode: func(r []int, imm int64) (uint16, error) { return CEbreak(), nil }},
	"c.jalr":     {NumRegs: 1, Encode: func(r []int, imm int64) (uint16, error) { return CJalr(r[0]) }},
	"c.add":      {NumRegs: 2, Encode: func(r []int, imm int64) (uint16, error) { return CAdd(r[0], r[1]) }},
	"c.swsp":     {NumRegs: 1, HasImm: true, Encode: func(r []int, imm int64) (uint16, error) { return CSwsp(r[0], imm) }},
}

func regPrime(name string, r int) (uint16, error) {
	if r < 8 || r > 15 {
		return 0, fmt.Errorf("%s must be one of x8-x15: x%d", name, r)
	}
	return uint16(r - 8), nil
}

func regFull(name string, r int) (uint16, error) {
	if r < 0 || r > 31 {
		return 0, fmt.Errorf("register must be between 0 and 31: %s=x%d", name, r)
	}
	return uint16(r), nil
}

func regNonZero(name string, r int) (uint16, error) {
	if r == 0 {
		return 0, fmt.Errorf("%s must not be x0", name)
	}
	return regFull(name, r)
}

func immRange(what string, imm, lo, hi, multiple int64) error {
	if imm < lo || imm > hi {
		return fmt.Errorf("%s must be between %d and %d: %d", what, lo, hi, imm)
	}
	if multiple > 1 && imm%multiple != 0 {
		return fmt.Errorf("%s must be a multiple of %d: %d", what, multiple, imm)
	}
	return nil
}

func immNonZero(what string, imm int64) error {
	if imm == 0 {
		return fmt.Errorf("%s must not be zero", what)
	}
	return nil
}

// CAddi4spn packs c.addi4spn (CIW): rd' = sp + nzuimm.
func CAddi4spn(rd int, imm int64) (uint16, error) {
	rdp, err := regPrime("rd", rd)
	if err != nil {
		return 0, err
	}
	if err := immNonZero("c.addi4spn immediate", imm); err != nil {
		return 0, err
	}
	if err := immRange("c.addi4spn immediate", imm, 0, 1020, 4); err != nil {
		return 0, err
	}
	u := uint16(imm)
	code := uint16(0b000) << 13
	code |= ((u >> 4) & 0b11) << 11  // uimm[5:4]
	code |= ((u >> 6) & 0b1111) << 7 // uimm[9:6]
	code |= ((u >> 2) & 0b1) << 6    // uimm[2]
	code |= ((u >> 3) & 0b1) << 5    // uimm[3]
	code |= rdp << 2
	code |= 0b00
	return code, nil
}

// CLw packs c.lw (CL): rd' = mem[rs1' + uimm].
func CLw(rd, rs1 int, imm int64) (uint16, error) {
	rdp, err := regPrime("rd", rd)
	if err != nil {
		return 0, err
	}
	rs1p, err := regPrime("rs1", rs1)
	if err != nil {
		return 0, err
	}
	if err := immRange("c.lw offset", imm, 0, 124, 4); err != nil {
		return 0, err
	}
	u := uint16(imm)
	code := uint16(0b010) << 13
	code |= ((u >> 3) & 0b111) << 10 // uimm[5:3]
	code |= rs1p << 7
	code |= ((u >> 2) & 0b1) << 6 // uimm[2]
	code |= ((u >> 6) & 0b1) << 5 // uimm[6]
	code |= rdp << 2
	code |= 0b00
	return code, nil
}

// CSw packs c.sw (CS): mem[rs1' + uimm] = rs2'.
func CSw(rs1, rs2 int, imm int64) (uint16, error) {
	rs1p, err := regPrime("rs1", rs1)
	if err != nil {
		return 0, err
	}
	rs2p, err := regPrime("rs2", rs2)
	if err != nil {
		return 0, err
	}
	if err := immRange("c.sw offset", imm, 0, 124, 4); err != nil {
		return 0, err
	}
	u := uint16(imm)
	code := uint16(0b110) << 13
	code |= ((u >> 3) & 0b111) << 10
	code |= rs1p << 7
	code |= ((u >> 2) & 0b1) << 6
	code |= ((u >> 6) & 0b1) << 5
	code |= rs2p << 2
	code |= 0b00
	return code, nil
}

// CNop packs c.nop.
func CNop() uint16 {
	return 0b0000000000000001
}

// CAddi packs c.addi: rd += nzimm, rd != x0.
func CAddi(rd int, imm int64) (uint16, error) {
	r, err := regNonZero("rd", rd)
	if err != nil {
		return 0, err
	}
	if err := immNonZero("c.addi immediate", imm); err != nil {
		return 0, err
	}
	if err := immRange("c.addi immediate", imm, -32, 31, 1); err != nil {
		return 0, err
	}
	return ciCode(0b000, 0b01, r, imm), nil
}

func ciCode(funct3, op, rd uint16, imm int64) uint16 {
	u := uint16(imm) & 0b111111
	code := funct3 << 13
	code |= ((u >> 5) & 0b1) << 12
	code |= rd << 7
	code |= (u & 0b11111) << 2
	code |= op
	return code
}

func cjTarget(imm int64) uint16 {
	u := uint16(imm/2) & 0x7ff // imm[11:1]
	var code uint16
	code |= ((u >> 10) & 0b1) << 12 // imm[11]
	code |= ((u >> 3) & 0b1) << 11  // imm[4]
	code |= ((u >> 7) & 0b11) << 9  // imm[9:8]
	code |= ((u >> 9) & 0b1) << 8   // imm[10]
	code |= ((u >> 5) & 0b1) << 7   // imm[6]
	code |= ((u >> 6) & 0b1) << 6   // imm[7]
	code |= (u & 0b111) << 3        // imm[3:1]
	code |= ((u >> 4) & 0b1) << 2   // imm[5]
	return code
}

// CJal packs c.jal: jump and link with an 11-bit even offset.
func CJal(imm int64) (uint16, error) {
	if err := immRange("c.jal offset", imm, -2048, 2046, 2); err != nil {
		return 0, err
	}
	return uint16(0b001)<<13 | cjTarget(imm) | 0b01, nil
}

// CLi packs c.li: rd = imm, rd != x0.
func CLi(rd int, imm int64) (uint16, error) {
	r, err := regNonZero("rd", rd)
	if err != nil {
		return 0, err
	}
	if err := immRange("c.li immediate", imm, -32, 31, 1); err != nil {
		return 0, err
	}
	return ciCode(0b010, 0b01, r, imm), nil
}

// CAddi16sp packs c.addi16sp: sp += nzimm, a multiple of 16.
func CAddi16sp(imm int64) (uint16, error) {
	if err := immNonZero("c.addi16sp immediate", imm); err != nil {
		return 0, err
	}
	if err := immRange("c.addi16sp immediate", imm, -512, 496, 16); err != nil {
		return 0, err
	}
	u := uint16(imm) & 0x3ff
	code := uint16(0b011) << 13
	code |= ((u >> 9) & 0b1) << 12 // imm[9]
	code |= uint16(2) << 7         // rd = sp
	code |= ((u >> 4) & 0b1) << 6  // imm[4]
	code |= ((u >> 6) & 0b1) << 5  // imm[6]
	code |= ((u >> 7) & 0b11) << 3 // imm[8:7]
	code |= ((u >> 5) & 0b1) << 2  // imm[5]
	code |= 0b01
	return code, nil
}

// CLui packs c.lui: rd != x0, rd != x2, six-bit non-zero immediate
// (the sign-extended upper-immediate field).
func CLui(rd int, imm int64) (uint16, error) {
	r, err := regNonZero("rd", rd)
	if err != nil {
		return 0, err
	}
	if rd == 2 {
		return 0, fmt.Errorf("c.lui rd must not be x2")
	}
	if err := immNonZero("c.lui immediate", imm); err != nil {
		return 0, err
	}
	if err := immRange("c.lui immediate", imm, -32, 31, 1); err != nil {
		return 0, err
	}
	return ciCode(0b011, 0b01, r, imm), nil
}

func cbShift(funct2 uint16, rd int, imm int64, what string) (uint16, error) {
	rdp, err := regPrime("rd", rd)
	if err != nil {
		return 0, err
	}
	if err := immNonZero(what, imm); err != nil {
		return 0, err
	}
	if err := immRange(what, imm, 1, 31, 1); err != nil {
		return 0, err
	}
	u := uint16(imm)
	code := uint16(0b100) << 13
	code |= funct2 << 10
	code |= rdp << 7
	code |= (u & 0b11111) << 2
	code |= 0b01
	return code, nil
}

// CSrli packs c.srli: rd' >>= shamt (logical).
func CSrli(rd int, imm int64) (uint16, error) {
	return cbShift(0b00, rd, imm, "c.srli shift amount")
}

// CSrai packs c.srai: rd' >>= shamt (arithmetic).
func CSrai(rd int, imm int64) (uint16, error) {
	return cbShift(0b01, rd, imm, "c.srai shift amount")
}

// CAndi packs c.andi: rd' &= imm.
func CAndi(rd int, imm int64) (uint16, error) {
	rdp, err := regPrime("rd", rd)
	if err != nil {
		return 0, err
	}
	if err := immRange("c.andi immediate", imm, -32, 31, 1); err != nil {
		return 0, err
	}
	u := uint16(imm) & 0b111111
	code := uint16(0b100) << 13
	code |= ((u >> 5) & 0b1) << 12
	code |= 0b10 << 10
	code |= rdp << 7
	code |= (u & 0b11111) << 2
	code |= 0b01
	return code, nil
}

func caCode(funct2 uint16, rd, rs2 int) (uint16, error) {
	rdp, err := regPrime("rd", rd)
	if err != nil {
		return 0, err
	}
	rs2p, err := regPrime("rs2", rs2)
	if err != nil {
		return 0, err
	}
	code := uint16(0b100011) << 10
	code |= rdp << 7
	code |= funct2 << 5
	code |= rs2p << 2
	code |= 0b01
	return code, nil
}

// CSub packs c.sub: rd' -= rs2'.
func CSub(rd, rs2 int) (uint16, error) { return caCode(0b00, rd, rs2) }

// CXor packs c.xor: rd' ^= rs2'.
func CXor(rd, rs2 int) (uint16, error) { return caCode(0b01, rd, rs2) }

// COr packs c.or: rd' |= rs2'.
func COr(rd, rs2 int) (uint16, error) { return caCode(0b10, rd, rs2) }

// CAnd packs c.and: rd' &= rs2'.
func CAnd(rd, rs2 int) (uint16, error) { return caCode(0b11, rd, rs2) }

// CJ packs c.j: jump with an 11-bit even offset.
func CJ(imm int64) (uint16, error) {
	if err := immRange("c.j offset", imm, -2048, 2046, 2); err != nil {
		return 0, err
	}
	return uint16(0b101)<<13 | cjTarget(imm) | 0b01, nil
}

func cbBranch(funct3 uint16, rs1 int, imm int64, what string) (uint16, error) {
	rs1p, err := regPrime("rs1", rs1)
	if err != nil {
		return 0, err
	}
	if err := immRange(what, imm, -256, 254, 2); err != nil {
		return 0, err
	}
	u := uint16(imm/2) & 0xff // imm[8:1]
	code := funct3 << 13
	code |= ((u >> 7) & 0b1) << 12 // imm[8]
	code |= ((u >> 2) & 0b11) << 10 // imm[4:3]
	code |= rs1p << 7
	code |= ((u >> 5) & 0b11) << 5 // imm[7:6]
	code |= (u & 0b11) << 3        // imm[2:1]
	code |= ((u >> 4) & 0b1) << 2  // imm[5]
	code |= 0b01
	return code, nil
}

// CBeqz packs c.beqz: branch if rs1' == 0.
func CBeqz(rs1 int, imm int64) (uint16, error) {
	return cbBranch(0b110, rs1, imm, "c.beqz offset")
}

// CBnez packs c.bnez: branch if rs1' != 0.
func CBnez(rs1 int, imm int64) (uint16, error) {
	return cbBranch(0b111, rs1, imm, "c.bnez offset")
}

// CSlli packs c.slli: rd <<= shamt, rd != x0.
func CSlli(rd int, imm int64) (uint16, error) {
	r, err := regNonZero("rd", rd)
	if err != nil {
		return 0, err
	}
	if err := immNonZero("c.slli shift amount", imm); err != nil {
		return 0, err
	}
	if err := immRange("c.slli shift amount", imm, 1, 31, 1); err != nil {
		return 0, err
	}
	u := uint16(imm)
	code := uint16(0b000) << 13
	code |= r << 7
	code |= (u & 0b11111) << 2
	code |= 0b10
	return code, nil
}

// CLwsp packs c.lwsp: rd = mem[sp + uimm], rd != x0.
func CLwsp(rd int, imm int64) (uint16, error) {
	r, err := regNonZero("rd", rd)
	if err != nil {
		return 0, err
	}
	if err := immRange("c.lwsp offset", imm, 0, 252, 4); err != nil {
		return 0, err
	}
	u := uint16(imm)
	code := uint16(0b010) << 13
	code |= ((u >> 5) & 0b1) << 12  // uimm[5]
	code |= r << 7
	code |= ((u >> 2) & 0b111) << 4 // uimm[4:2]
	code |= ((u >> 6) & 0b11) << 2  // uimm[7:6]
	code |= 0b10
	return code, nil
}

// CJr packs c.jr: jump to rs1, rs1 != x0.
func CJr(rs1 int) (uint16, error) {
	r, err := regNonZero("rs1", rs1)
	if err != nil {
		return 0, err
	}
	return uint16(0b1000)<<12 | r<<7 | 0b10, nil
}

// CMv packs c.mv: rd = rs2, both non-zero.
func CMv(rd, rs2 int) (uint16, error) {
	r, err := regNonZero("rd", rd)
	if err != nil {
		return 0, err
	}
	r2, err := regNonZero("rs2", rs2)
	if err != nil {
		return 0, err
	}
	return uint16(0b1000)<<12 | r<<7 | r2<<2 | 0b10, nil
}

// CEbreak packs c.ebreak.
func CEbreak() uint16 {
	return 0b1001000000000010
}

// CJalr packs c.jalr: jump and link to rs1, rs1 != x0.
func CJalr(rs1 int) (uint16, error) {
	r, err := regNonZero("rs1", rs1)
	if err != nil {
		return 0, err
	}
	return uint16(0b1001)<<12 | r<<7 | 0b10, nil
}

// CAdd packs c.add: rd += rs2, both non-zero.
func CAdd(rd, rs2 int) (uint16, error) {
	r, err := regNonZero("rd", rd)
	if err != nil {
		return 0, err
	}
	r2, err := regNonZero("rs2", rs2)
	if err != nil {
		return 0, err
	}
	return uint16(0b1001)<<12 | r<<7 | r2<<2 | 0b10, nil
}

// CSwsp packs c.swsp: mem[sp + uimm] = rs2.
func CSwsp(rs2 int, imm int64) (uint16, error) {
	r, err := regFull("rs2", rs2)
	if err != nil {
		return 0, err
	}
	if err := immRange("c.swsp offset", imm, 0, 252, 4); err != nil {
		return 0, err
	}
	u := uint16(imm)
	code := uint16(0b110) << 13
	code |= ((u >> 2) & 0b1111) << 9 // uimm[5:2]
	code |= ((u >> 6) & 0b11) << 7   // uimm[7:6]
	code |= r << 2
	code |= 0b10
	return code, nil
}
